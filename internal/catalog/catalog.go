package catalog

import "fmt"

// Category describes one crawlable category: its place in our
// taxonomy plus the URL slug the site uses for its index pages.
type Category struct {
	Category    string
	Subcategory string
	Slug        string
	Label       string
}

// SaleCategories lists all for-sale property categories
var SaleCategories = []Category{
	{Category: "sale", Subcategory: "apartamentos", Slug: "bienes-raices-venta-de-propiedades-apartamentos", Label: "Apartamentos (Venta)"},
	{Category: "sale", Subcategory: "casas", Slug: "bienes-raices-venta-de-propiedades-casas", Label: "Casas (Venta)"},
	{Category: "sale", Subcategory: "lotes-y-terrenos", Slug: "bienes-raices-venta-de-propiedades-lotes-y-terrenos", Label: "Lotes y Terrenos (Venta)"},
	{Category: "sale", Subcategory: "casas-y-terrenos-de-playas", Slug: "bienes-raices-venta-de-propiedades-casas-y-terrenos-de-playas", Label: "Casas de Playa (Venta)"},
	{Category: "sale", Subcategory: "fincas", Slug: "bienes-raices-venta-de-propiedades-fincas", Label: "Fincas (Venta)"},
	{Category: "sale", Subcategory: "negocios", Slug: "bienes-raices-venta-de-propiedades-negocios", Label: "Negocios (Venta)"},
	{Category: "sale", Subcategory: "comercios", Slug: "bienes-raices-venta-de-propiedades-comercios", Label: "Comercios (Venta)"},
	{Category: "sale", Subcategory: "oficinas", Slug: "bienes-raices-venta-de-propiedades-oficinas", Label: "Oficinas (Venta)"},
	{Category: "sale", Subcategory: "edificios", Slug: "bienes-raices-venta-de-propiedades-edificios", Label: "Edificios (Venta)"},
	{Category: "sale", Subcategory: "en-islas", Slug: "bienes-raices-venta-de-propiedades-en-islas", Label: "En Islas (Venta)"},
	{Category: "sale", Subcategory: "estacionamientos-sepultura-otros", Slug: "bienes-raices-venta-de-propiedades-estacionamientos-sepultura-otros", Label: "Otros (Venta)"},
}

// RentalCategories lists all rental property categories
var RentalCategories = []Category{
	{Category: "rental", Subcategory: "apartamentos", Slug: "bienes-raices-alquiler-apartamentos", Label: "Apartamentos (Alquiler)"},
	{Category: "rental", Subcategory: "apartamentos-amueblados", Slug: "bienes-raices-alquiler-apartamentos-amueblados", Label: "Apts Amueblados (Alquiler)"},
	{Category: "rental", Subcategory: "oficinas", Slug: "bienes-raices-alquiler-alquiler-de-oficinas", Label: "Oficinas (Alquiler)"},
	{Category: "rental", Subcategory: "casas", Slug: "bienes-raices-alquiler-casas", Label: "Casas (Alquiler)"},
	{Category: "rental", Subcategory: "comercios", Slug: "bienes-raices-alquiler-comercios", Label: "Comercios (Alquiler)"},
	{Category: "rental", Subcategory: "cuartos", Slug: "bienes-raices-alquiler-cuartos", Label: "Cuartos (Alquiler)"},
	{Category: "rental", Subcategory: "casas-de-playa", Slug: "bienes-raices-alquiler-casas-de-playa", Label: "Casas de Playa (Alquiler)"},
	{Category: "rental", Subcategory: "casas-en-el-interior", Slug: "bienes-raices-alquiler-casas-en-el-interior", Label: "Casas Interior (Alquiler)"},
	{Category: "rental", Subcategory: "negocios", Slug: "bienes-raices-alquiler-negocios", Label: "Negocios (Alquiler)"},
	{Category: "rental", Subcategory: "lotes-y-terrenos", Slug: "bienes-raices-alquiler-lotes-y-terrenos", Label: "Lotes y Terrenos (Alquiler)"},
	{Category: "rental", Subcategory: "estacionamientos-sepultura-otros", Slug: "bienes-raices-alquiler-estacionamientos-sepultura-otros", Label: "Otros (Alquiler)"},
}

// OtherCategories lists vacation rentals and new construction projects
var OtherCategories = []Category{
	{Category: "vacation", Subcategory: "alquiler-vacaciones", Slug: "bienes-raices-alquiler-vacaciones", Label: "Alquiler Vacaciones"},
	{Category: "new_project", Subcategory: "proyectos-nuevos", Slug: "bienes-raices-proyectos-nuevos", Label: "Proyectos Nuevos"},
}

// All returns every known category
func All() []Category {
	all := make([]Category, 0, len(SaleCategories)+len(RentalCategories)+len(OtherCategories))
	all = append(all, SaleCategories...)
	all = append(all, RentalCategories...)
	all = append(all, OtherCategories...)
	return all
}

// Find returns the categories matching the given filters. Empty
// filters match everything; a filter combination matching nothing
// yields an empty slice, which callers treat as "nothing to crawl".
func Find(category, subcategory string) []Category {
	var matched []Category
	for _, c := range All() {
		if category != "" && c.Category != category {
			continue
		}
		if subcategory != "" && c.Subcategory != subcategory {
			continue
		}
		matched = append(matched, c)
	}
	return matched
}

// BuildListURL builds the index-page URL for a category, optional
// region slug and page number. Pages beyond the first use the site's
// ".N" suffix. Results are sorted by recency so incremental crawls
// meet new listings first.
func BuildListURL(baseURL string, cat Category, regionSlug string, page int) string {
	url := fmt.Sprintf("%s/%s", baseURL, cat.Slug)

	if regionSlug != "" {
		url += "/" + regionSlug
	}

	if page > 1 {
		url += fmt.Sprintf(".%d", page)
	}

	return url + "?sort=f_added&dir=desc"
}
