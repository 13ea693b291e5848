package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFind(t *testing.T) {
	all := Find("", "")
	assert.Equal(t, len(All()), len(all))

	sale := Find("sale", "")
	assert.Equal(t, len(SaleCategories), len(sale))
	for _, c := range sale {
		assert.Equal(t, "sale", c.Category)
	}

	casas := Find("sale", "casas")
	assert.Len(t, casas, 1)
	assert.Equal(t, "bienes-raices-venta-de-propiedades-casas", casas[0].Slug)

	// Unknown combination matches nothing, not an error
	assert.Empty(t, Find("sale", "does-not-exist"))
	assert.Empty(t, Find("nope", ""))
}

func TestBuildListURL(t *testing.T) {
	base := "https://www.encuentra24.com/panama-es"
	cat := Category{Category: "sale", Subcategory: "casas", Slug: "bienes-raices-venta-de-propiedades-casas", Label: "Casas (Venta)"}

	assert.Equal(t,
		"https://www.encuentra24.com/panama-es/bienes-raices-venta-de-propiedades-casas?sort=f_added&dir=desc",
		BuildListURL(base, cat, "", 1))

	assert.Equal(t,
		"https://www.encuentra24.com/panama-es/bienes-raices-venta-de-propiedades-casas/prov-panama?sort=f_added&dir=desc",
		BuildListURL(base, cat, "prov-panama", 1))

	assert.Equal(t,
		"https://www.encuentra24.com/panama-es/bienes-raices-venta-de-propiedades-casas/prov-panama.3?sort=f_added&dir=desc",
		BuildListURL(base, cat, "prov-panama", 3))
}
