package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/certihub/internal/authorization"
	obscontext "github.com/smallbiznis/certihub/internal/observability/context"
)

// Identity headers are set by the upstream identity provider. The service
// never authenticates users itself.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

const contextActorKey = "actor"

// Identity lifts the forwarded identity headers into the request context.
// A request without a user id is anonymous; a user without a role is a
// learner.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := obscontext.Actor{
			ID:    strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Email: strings.TrimSpace(c.GetHeader(HeaderUserEmail)),
			Role:  strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))),
		}
		switch {
		case actor.ID == "":
			actor.Role = authorization.RoleAnonymous
		case actor.Role == "":
			actor.Role = authorization.RoleLearner
		}

		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// Authorize checks the caller's role against the route policy.
func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		if err := s.authzSvc.Authorize(c.Request.Context(), actor.Role, c.Request.URL.Path, c.Request.Method); err != nil {
			if actor.ID == "" {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) obscontext.Actor {
	if v, ok := c.Get(contextActorKey); ok {
		if actor, ok := v.(obscontext.Actor); ok {
			return actor
		}
	}
	return obscontext.Actor{Role: authorization.RoleAnonymous}
}

func isAdmin(actor obscontext.Actor) bool {
	return actor.Role == authorization.RoleAdmin
}

// canSee reports whether actor may read a resource owned by ownerID.
func canSee(actor obscontext.Actor, ownerID string) bool {
	return isAdmin(actor) || (actor.ID != "" && actor.ID == ownerID)
}
