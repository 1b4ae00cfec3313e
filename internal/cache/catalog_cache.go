package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/certihub/internal/catalog/domain"
)

const (
	defaultCertificationTTL = 5 * time.Minute
	defaultModulesTTL       = 5 * time.Minute
)

// CatalogCache stores read-mostly certification and module lookups.
// Writers must call Invalidate after every committed change.
type CatalogCache interface {
	GetCertification(id snowflake.ID) (catalogdomain.Certification, bool)
	SetCertification(cert catalogdomain.Certification)
	GetModules(certificationID snowflake.ID) ([]catalogdomain.Module, bool)
	SetModules(certificationID snowflake.ID, modules []catalogdomain.Module)
	Invalidate(certificationID snowflake.ID)
}

type catalogCache struct {
	certifications Cache[catalogdomain.Certification]
	modules        Cache[[]catalogdomain.Module]
	certTTL        time.Duration
	modulesTTL     time.Duration
}

func NewCatalogCache() CatalogCache {
	return &catalogCache{
		certifications: NewTTLCache[catalogdomain.Certification](),
		modules:        NewTTLCache[[]catalogdomain.Module](),
		certTTL:        defaultCertificationTTL,
		modulesTTL:     defaultModulesTTL,
	}
}

func (c *catalogCache) GetCertification(id snowflake.ID) (catalogdomain.Certification, bool) {
	return c.certifications.Get(cacheKey("certification", id.String()))
}

func (c *catalogCache) SetCertification(cert catalogdomain.Certification) {
	if cert.ID == 0 {
		return
	}
	c.certifications.Set(cacheKey("certification", cert.ID.String()), cert, c.certTTL)
}

func (c *catalogCache) GetModules(certificationID snowflake.ID) ([]catalogdomain.Module, bool) {
	modules, ok := c.modules.Get(cacheKey("modules", certificationID.String()))
	if !ok {
		return nil, false
	}
	out := make([]catalogdomain.Module, len(modules))
	copy(out, modules)
	return out, true
}

func (c *catalogCache) SetModules(certificationID snowflake.ID, modules []catalogdomain.Module) {
	if certificationID == 0 {
		return
	}
	stored := make([]catalogdomain.Module, len(modules))
	copy(stored, modules)
	c.modules.Set(cacheKey("modules", certificationID.String()), stored, c.modulesTTL)
}

func (c *catalogCache) Invalidate(certificationID snowflake.ID) {
	c.certifications.Delete(cacheKey("certification", certificationID.String()))
	c.modules.Delete(cacheKey("modules", certificationID.String()))
}
