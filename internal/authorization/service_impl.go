package authorization

import (
	"context"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrForbidden   = errkind.New(errkind.Forbidden, "forbidden", "role is not allowed to call this route")
	ErrUnknownRole = errkind.New(errkind.Forbidden, "unknown_role", "role must be learner or admin")
)

type Service interface {
	Authorize(ctx context.Context, role, path, method string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer persists policies in the casbin_rule table through the gorm
// adapter and seeds the built-in role policies.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return NewEnforcerWithAdapter(adapter)
}

// NewEnforcerWithAdapter builds an enforcer; a nil adapter keeps policies in
// memory only.
func NewEnforcerWithAdapter(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter == nil {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	}
	if err != nil {
		return nil, err
	}

	if adapter != nil {
		enforcer.EnableAutoSave(true)
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role, path, method string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case RoleAnonymous, RoleLearner, RoleAdmin:
	default:
		return ErrUnknownRole
	}

	allowed, err := s.enforcer.Enforce(subject(role), path, strings.ToUpper(method))
	if err != nil {
		return errkind.Upstream(err, "enforce policy")
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", role),
			zap.String("path", path),
			zap.String("method", method),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, link := range roleLinks {
		has, err := enforcer.HasGroupingPolicy(link[0], link[1])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(link[0], link[1]); err != nil {
			return err
		}
	}
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy[0], policy[1], policy[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
