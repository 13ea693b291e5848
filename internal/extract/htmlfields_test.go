package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailFieldsHTML = `<html><body>
<div class="d3-property-details">
  <div class="d3-property-details__detail-label">Precio
    <p class="d3-property-details__detail">$250,000</p></div>
  <div class="d3-property-details__detail-label">Recámaras
    <p class="d3-property-details__detail">3</p></div>
  <div class="d3-property-details__detail-label">Baños
    <p class="d3-property-details__detail">2.5</p></div>
  <div class="d3-property-details__detail-label">Área construida (m²)
    <p class="d3-property-details__detail">210.5</p></div>
  <div class="d3-property-details__detail-label">Año de construcción
    <p class="d3-property-details__detail">2018</p></div>
  <div class="d3-property-details__detail-label">Publicado
    <p class="d3-property-details__detail">05/08/2026</p></div>
  <div class="d3-property-details__detail-label">Localización
    <p class="d3-property-details__detail">Costa del Este</p></div>
  <div class="d3-property-details__detail-label">Sin valor
    <p class="d3-property-details__detail"></p></div>
  <div class="d3-property-details__detail-label">Campo desconocido
    <p class="d3-property-details__detail">ignorado</p></div>
</div>

<dl>
  <dt>Titulación</dt><dd>Propiedad titulada</dd>
  <dt>Niveles</dt><dd>2</dd>
  <dt>Huérfano</dt>
</dl>

<div class="d3-property__map">
  <iframe src="https://maps.google.com/maps?q=8.991234,-79.512345&hl=es"></iframe>
</div>

<div class="d3-property-about">
  Hermosa casa con acabados de lujo.
  <button>Leer más</button>
</div>

<div class="swiper-slide"><img src="https://cdn.example.com/t_or_cvr_th/v1/photo-1.jpg"></div>
<div class="swiper-slide"><img src="data:image/gif;base64,R0lGOD"></div>
<div class="swiper-slide"><img src="https://cdn.example.com/no-image.png"></div>
<div class="swiper-slide"><img src="https://cdn.example.com/t_or_cvr_th/v1/photo-2.jpg"></div>

<div class="d3-property-benefits">
  <ul><li>Piscina</li><li>Seguridad 24/7</li><li>Piscina</li></ul>
</div>
<div class="amenities"><ul><li>No debe aparecer</li></ul></div>

<iframe src="https://www.youtube.com/embed/abc123"></iframe>
</body></html>`

func TestHTMLFieldData(t *testing.T) {
	fields := HTMLFieldData(docFromHTML(t, detailFieldsHTML))

	assert.Equal(t, 250000.0, *fields.Price)
	assert.Equal(t, 3, *fields.Bedrooms)
	assert.Equal(t, 2.5, *fields.Bathrooms)
	assert.Equal(t, 210.5, *fields.BuiltAreaSqm)
	assert.Equal(t, 2018, *fields.YearBuilt)
	require.NotNil(t, fields.PublishedAt)
	assert.Equal(t, "2026-08-05", *fields.PublishedAt)
	assert.Equal(t, "Costa del Este", fields.Location)

	// dt/dd fallback layout feeds the same label dictionary
	assert.Equal(t, "Propiedad titulada", fields.TitleStatus)
	assert.Equal(t, 2, *fields.Levels)

	require.NotNil(t, fields.Latitude)
	assert.Equal(t, 8.991234, *fields.Latitude)
	assert.Equal(t, -79.512345, *fields.Longitude)

	assert.Equal(t, "Hermosa casa con acabados de lujo.", fields.Description)

	assert.Equal(t, []string{
		"https://cdn.example.com/t_or_fh_l/v1/photo-1.jpg",
		"https://cdn.example.com/t_or_fh_l/v1/photo-2.jpg",
	}, fields.Images, "placeholders dropped, thumbnails upgraded")

	assert.Equal(t, []string{"Piscina", "Seguridad 24/7"}, fields.Amenities,
		"first matching amenity block wins, later candidates are not unioned")

	assert.True(t, fields.HasVideo)
	assert.False(t, fields.HasVR)
}

func TestHTMLFieldDataEmptyPage(t *testing.T) {
	fields := HTMLFieldData(docFromHTML(t, `<html><body><p>nada</p></body></html>`))

	assert.Nil(t, fields.Price)
	assert.Nil(t, fields.Latitude)
	assert.Empty(t, fields.Description)
	assert.Nil(t, fields.Images)
	assert.Nil(t, fields.Amenities)
	assert.False(t, fields.HasVideo)
	assert.False(t, fields.HasVR)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "ano de construccion", normalizeLabel("  Año de Construcción "))
	assert.Equal(t, "recamaras", normalizeLabel("Recámaras"))
	assert.Equal(t, "precio", normalizeLabel("precio"))
}
