package inbound

import "time"

type DeliveryResponse struct {
	ID          int64     `json:"id,string"`
	UserID      int64     `json:"user_id,string"`
	Channel     string    `json:"channel"`
	PhoneHint   string    `json:"phone_hint"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	ProviderRef string    `json:"provider_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListDeliveriesResponse struct {
	Items  []DeliveryResponse `json:"items"`
	limit  int32
	offset int32
}

func (r ListDeliveriesResponse) Meta() map[string]any {
	return map[string]any{"limit": r.limit, "offset": r.offset, "count": len(r.Items)}
}
