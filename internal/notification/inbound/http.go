package inbound

import (
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc, enforcer router.Enforcer) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/notifications/deliveries", end.ListDeliveries, router.Authorize(enforcer, "deliveries", "read"))
}
