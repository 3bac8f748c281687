package authclient

import (
	"context"
	"strings"
	"sync"
	"time"
)

// State is the position of a Verifier in the sign-in handshake.
type State int

const (
	// StateAwaitingCredentials shows the identifier and password form.
	StateAwaitingCredentials State = iota
	// StateStarting has a start request in flight.
	StateStarting
	// StateAwaitingCode holds a pending token and shows the code form.
	StateAwaitingCode
	// StateVerifying has a verify request in flight.
	StateVerifying
	// StateRedirected is terminal: the session exists and navigation happened.
	StateRedirected
)

func (s State) String() string {
	switch s {
	case StateAwaitingCredentials:
		return "awaiting_credentials"
	case StateStarting:
		return "starting"
	case StateAwaitingCode:
		return "awaiting_code"
	case StateVerifying:
		return "verifying"
	case StateRedirected:
		return "redirected"
	default:
		return "unknown"
	}
}

func (s State) inFlight() bool {
	return s == StateStarting || s == StateVerifying
}

// User-visible status lines.
const (
	StatusSending    = "Sending code…"
	StatusVerifying  = "Verifying…"
	StatusRedirect   = "Signed in. Redirecting…"
	StatusCodeSent   = "Code sent. Check your phone for the verification code."
	codeSentToPrefix = "Code sent to "
)

// API is the part of Client the Verifier needs.
type API interface {
	Start(ctx context.Context, creds Credentials) (StartResult, error)
	Verify(ctx context.Context, attempt VerificationAttempt) (VerifyResult, error)
}

// Navigator performs the full navigation after a successful verification.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

// Navigate calls f(target).
func (f NavigatorFunc) Navigate(target string) { f(target) }

// View is a snapshot of what the login screen should render.
type View struct {
	State    State
	Status   string
	Error    string
	Hint     string
	Redirect string
}

type pendingVerification struct {
	token    string
	hint     string
	issuedTo Credentials
}

// Verifier is the state machine of one login-page session.
//
// All methods are safe for concurrent use. No lock is held while a request
// is in flight; a second request is refused until the first one settles.
type Verifier struct {
	api       API
	navigator Navigator
	timeout   time.Duration

	mu          sync.Mutex
	state       State
	pending     *pendingVerification
	credentials *Credentials
	status      string
	errMsg      string
	redirect    string
	generation  uint64
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithTimeout bounds every request the Verifier makes. Zero means no bound
// beyond the caller's context.
func WithTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.timeout = d }
}

// NewVerifier returns a Verifier in StateAwaitingCredentials.
func NewVerifier(api API, navigator Navigator, opts ...VerifierOption) *Verifier {
	if navigator == nil {
		navigator = NavigatorFunc(func(string) {})
	}

	v := &Verifier{
		api:       api,
		navigator: navigator,
		state:     StateAwaitingCredentials,
	}
	for _, opt := range opts {
		opt(v)
	}

	return v
}

// View returns the current render state.
func (v *Verifier) View() View {
	v.mu.Lock()
	defer v.mu.Unlock()

	view := View{
		State:    v.state,
		Status:   v.status,
		Error:    v.errMsg,
		Redirect: v.redirect,
	}
	if v.pending != nil {
		view.Hint = v.pending.hint
	}

	return view
}

// State returns the current state.
func (v *Verifier) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SubmitCredentials starts a login with the given identifier and password.
func (v *Verifier) SubmitCredentials(ctx context.Context, identifier, password string) error {
	creds := Credentials{Identifier: strings.TrimSpace(identifier), Password: password}

	var verr *ValidationError
	switch {
	case creds.Identifier == "" && strings.TrimSpace(creds.Password) == "":
		verr = &ValidationError{Field: "identifier", Message: "Enter your username or email and password."}
	case creds.Identifier == "":
		verr = &ValidationError{Field: "identifier", Message: "Enter your username or email."}
	case strings.TrimSpace(creds.Password) == "":
		verr = &ValidationError{Field: "password", Message: "Enter your password."}
	}
	if verr != nil {
		v.fail(verr)
		return verr
	}

	v.mu.Lock()
	if v.state != StateAwaitingCredentials {
		err := v.wrongStateLocked("Go back to the sign-in form to use different credentials.")
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	return v.start(ctx, creds)
}

// Resend repeats the start call with the cached credentials, refreshing the
// pending token and hint.
func (v *Verifier) Resend(ctx context.Context) error {
	v.mu.Lock()
	if v.credentials == nil {
		err := &StateError{State: v.state, Message: "Nothing to resend. Sign in first."}
		v.errMsg = err.Message
		v.mu.Unlock()
		return err
	}
	creds := *v.credentials
	v.mu.Unlock()

	return v.start(ctx, creds)
}

// SubmitCode verifies code against the pending token.
func (v *Verifier) SubmitCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)

	v.mu.Lock()
	if v.pending == nil {
		err := &StateError{State: v.state, Message: "Verification expired. Please sign in again."}
		v.resetLocked()
		v.errMsg = err.Message
		v.mu.Unlock()
		return err
	}
	if code == "" {
		err := &ValidationError{Field: "code", Message: "Enter the verification code."}
		v.errMsg = err.Message
		v.mu.Unlock()
		return err
	}
	if v.state.inFlight() {
		err := v.wrongStateLocked("A request is already in progress.")
		v.mu.Unlock()
		return err
	}

	v.state = StateVerifying
	v.status = StatusVerifying
	v.errMsg = ""
	attempt := VerificationAttempt{Token: v.pending.token, Code: code}
	gen := v.generation
	v.mu.Unlock()

	reqCtx, cancel := v.requestContext(ctx)
	res, err := v.api.Verify(reqCtx, attempt)
	cancel()

	v.mu.Lock()
	if gen != v.generation {
		v.mu.Unlock()
		return &StateError{State: StateAwaitingCredentials, Message: "The sign-in attempt was reset."}
	}

	if err != nil {
		v.status = ""
		v.errMsg = UserMessage(err)
		if IsVerificationExpired(err) {
			v.pending = nil
			v.state = StateAwaitingCredentials
			v.generation++
		} else {
			v.state = StateAwaitingCode
		}
		v.mu.Unlock()
		return err
	}

	target := strings.TrimSpace(res.Redirect)
	if target == "" {
		target = DefaultRedirect
	}
	v.pending = nil
	v.credentials = nil
	v.state = StateRedirected
	v.status = StatusRedirect
	v.redirect = target
	navigator := v.navigator
	v.mu.Unlock()

	navigator.Navigate(target)

	return nil
}

// BackToCredentials discards the pending token, the cached credentials and
// any message, and returns to the credentials form. Responses to requests
// sent before the call are ignored.
func (v *Verifier) BackToCredentials() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.resetLocked()
	v.credentials = nil
}

func (v *Verifier) start(ctx context.Context, creds Credentials) error {
	v.mu.Lock()
	if v.state.inFlight() || v.state == StateRedirected {
		err := v.wrongStateLocked("A request is already in progress.")
		v.mu.Unlock()
		return err
	}

	prev := v.state
	v.state = StateStarting
	v.status = StatusSending
	v.errMsg = ""
	gen := v.generation
	v.mu.Unlock()

	reqCtx, cancel := v.requestContext(ctx)
	res, err := v.api.Start(reqCtx, creds)
	cancel()

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		return &StateError{State: v.state, Message: "The sign-in attempt was reset."}
	}

	if err != nil {
		v.state = prev
		v.status = ""
		v.errMsg = UserMessage(err)
		return err
	}

	v.pending = &pendingVerification{token: res.Token, hint: res.PhoneHint, issuedTo: creds}
	cached := creds
	v.credentials = &cached
	v.state = StateAwaitingCode
	v.status = codeSentMessage(res.PhoneHint)

	return nil
}

func (v *Verifier) fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = ""
	v.errMsg = UserMessage(err)
}

func (v *Verifier) wrongStateLocked(msg string) *StateError {
	err := &StateError{State: v.state, Message: msg}
	if v.state == StateRedirected {
		err.Message = "Already signed in."
	}
	return err
}

func (v *Verifier) resetLocked() {
	v.pending = nil
	v.status = ""
	v.errMsg = ""
	v.redirect = ""
	v.state = StateAwaitingCredentials
	v.generation++
}

func (v *Verifier) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout > 0 {
		return context.WithTimeout(ctx, v.timeout)
	}
	return context.WithCancel(ctx)
}

func codeSentMessage(hint string) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		return codeSentToPrefix + hint
	}
	return StatusCodeSent
}
