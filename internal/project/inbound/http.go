package inbound

import (
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc, enforcer router.Enforcer) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/projects", end.ListProjects)
	r.POST("/api/projects", end.CreateProject)
	r.GET("/api/projects/:id", end.GetProject)
	r.DELETE("/api/projects/:id", end.DeleteProject, router.Authorize(enforcer, "projects", "delete"))

	r.GET("/api/projects/:id/tasks", end.ListTasks)
	r.POST("/api/projects/:id/tasks", end.CreateTask)
	r.PATCH("/api/tasks/:id", end.UpdateTask)
	r.DELETE("/api/tasks/:id", end.DeleteTask)

	r.GET("/api/projects/:id/backlogs", end.ListBacklogs)
	r.POST("/api/projects/:id/backlogs", end.CreateBacklog)
	r.PATCH("/api/backlogs/:id", end.UpdateBacklog)
	r.DELETE("/api/backlogs/:id", end.DeleteBacklog)

	r.GET("/api/projects/:id/sprints", end.ListSprints)
	r.POST("/api/projects/:id/sprints", end.CreateSprint)
	r.PATCH("/api/sprints/:id", end.UpdateSprint)
	r.DELETE("/api/sprints/:id", end.DeleteSprint)

	r.GET("/api/projects/:id/resources", end.ListResources)
	r.POST("/api/projects/:id/resources", end.CreateResource)
	r.PATCH("/api/resources/:id", end.UpdateResource)
	r.DELETE("/api/resources/:id", end.DeleteResource)
}
