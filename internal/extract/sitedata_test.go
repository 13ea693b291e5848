package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const siteDataHTML = `<html><body>
<script>
var loopaData = {"ProductId": "31871394", "Price": "250000", "Country": "Panama",
"Region": "Costa del Este", "ParentRegion": "Ciudad de Panama",
"Bedrooms": "3", "Size": "210.5", "HousingType": "Casa", "SaleType": "sale"};
loopaInit(loopaData);
</script>
</body></html>`

func TestSiteCatalogData(t *testing.T) {
	data := SiteCatalogData(docFromHTML(t, siteDataHTML))
	require.NotNil(t, data)

	assert.Equal(t, "31871394", data.ProductID)
	assert.Equal(t, 250000.0, *data.Price)
	assert.Equal(t, "Costa del Este", data.Region)
	assert.Equal(t, "Ciudad de Panama", data.ParentRegion)
	assert.Equal(t, 3, *data.Bedrooms)
	assert.Equal(t, 210.5, *data.Size)
	assert.Equal(t, "Casa", data.HousingType)
	assert.NotEmpty(t, data.Raw)
}

func TestSiteCatalogDataAbsentOrBroken(t *testing.T) {
	assert.Nil(t, SiteCatalogData(docFromHTML(t, `<script>var other = 1;</script>`)))

	// Malformed object literal yields nil, never an error
	broken := `<script>var loopaData = {Price: 250000,};</script>`
	assert.Nil(t, SiteCatalogData(docFromHTML(t, broken)))
}

func TestSiteCatalogDataRoundTrip(t *testing.T) {
	data := SiteCatalogData(docFromHTML(t, siteDataHTML))
	require.NotNil(t, data)

	again := SiteCatalogData(docFromHTML(t, `<script>var loopaData = `+data.Raw+`;</script>`))
	require.NotNil(t, again)
	assert.Equal(t, data, again)
}
