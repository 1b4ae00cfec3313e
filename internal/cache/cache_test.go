package cache

import (
	"testing"

	catalogdomain "github.com/smallbiznis/certihub/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheTypedGet(t *testing.T) {
	c := NewTTLCache[int]()
	c.Set("a", 1, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCacheKeyNormalizes(t *testing.T) {
	assert.Equal(t, "modules|42", cacheKey(" Modules ", "", "42"))
}

func TestCatalogCacheInvalidate(t *testing.T) {
	c := NewCatalogCache()
	c.SetCertification(catalogdomain.Certification{ID: 7, Title: "Go"})
	c.SetModules(7, []catalogdomain.Module{{ID: 1, CertificationID: 7, Sequence: 1}})

	cert, ok := c.GetCertification(7)
	assert.True(t, ok)
	assert.Equal(t, "Go", cert.Title)

	modules, ok := c.GetModules(7)
	assert.True(t, ok)
	assert.Len(t, modules, 1)

	c.Invalidate(7)
	_, ok = c.GetCertification(7)
	assert.False(t, ok)
	_, ok = c.GetModules(7)
	assert.False(t, ok)
}

func TestCatalogCacheIgnoresZeroID(t *testing.T) {
	c := NewCatalogCache()
	c.SetCertification(catalogdomain.Certification{})

	_, ok := c.GetCertification(0)
	assert.False(t, ok)
}
