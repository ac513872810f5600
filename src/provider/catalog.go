package provider

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"watershed-sync/src/helpers"
	"watershed-sync/src/interfaces"
	"watershed-sync/src/logger"
	"watershed-sync/src/models"
	"watershed-sync/src/utils"
)

// -----------------------------------------------------------------------------
// Catalog is the client for the provider's metadata API. Products and
// watersheds change rarely, so both lists are fetched once and memoized;
// Refresh drops the memo when a caller wants current data.
// -----------------------------------------------------------------------------

type Catalog struct {
	Network interfaces.INetworkManager
	Config  *models.MConfig
	Logger  *logger.Logger

	mu         sync.Mutex
	products   []models.MProduct
	watersheds []models.MWatershed
}

// -----------------------------------------------------------------------------

func NewCatalog(nm interfaces.INetworkManager, cfg *models.MConfig, log *logger.Logger) *Catalog {
	return &Catalog{
		Network: nm,
		Config:  cfg,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (c *Catalog) endpointURL(path string) string {
	return fmt.Sprintf("%s://%s/%s", c.Config.Provider.Scheme, c.Config.Provider.Host, path)
}

// -----------------------------------------------------------------------------

// Products returns the provider's product list, fetching it on first use.
func (c *Catalog) Products() ([]models.MProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.products == nil {
		var products []models.MProduct
		if err := c.Network.GetJSON(c.endpointURL("products"), nil, &products); err != nil {
			return nil, err
		}
		c.products = products
		c.Logger.Debug("Fetched %d products from provider", len(products))
	}
	return c.products, nil
}

// -----------------------------------------------------------------------------

// Watersheds returns the provider's watershed list, fetching it on first use.
func (c *Catalog) Watersheds() ([]models.MWatershed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watersheds == nil {
		var watersheds []models.MWatershed
		if err := c.Network.GetJSON(c.endpointURL("watersheds"), nil, &watersheds); err != nil {
			return nil, err
		}
		c.watersheds = watersheds
		c.Logger.Debug("Fetched %d watersheds from provider", len(watersheds))
	}
	return c.watersheds, nil
}

// -----------------------------------------------------------------------------

// Refresh drops the memoized metadata so the next lookup refetches it.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.watersheds = nil
}

// -----------------------------------------------------------------------------

func (c *Catalog) ProductByID(id string) (*models.MProduct, error) {
	products, err := c.Products()
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, helpers.NewConfigurationError(fmt.Sprintf("no product with id %s", id), nil)
}

// -----------------------------------------------------------------------------

func (c *Catalog) ProductByName(name string) (*models.MProduct, error) {
	products, err := c.Products()
	if err != nil {
		return nil, err
	}
	slug := utils.Slugify(name)
	for i := range products {
		if strings.EqualFold(products[i].Name, name) || utils.Slugify(products[i].Name) == slug {
			return &products[i], nil
		}
	}
	return nil, helpers.NewConfigurationError(fmt.Sprintf("no product named %q", name), nil)
}

// -----------------------------------------------------------------------------

func (c *Catalog) WatershedByID(id string) (*models.MWatershed, error) {
	watersheds, err := c.Watersheds()
	if err != nil {
		return nil, err
	}
	for i := range watersheds {
		if watersheds[i].ID == id {
			return &watersheds[i], nil
		}
	}
	return nil, helpers.NewConfigurationError(fmt.Sprintf("no watershed with id %s", id), nil)
}

// -----------------------------------------------------------------------------

func (c *Catalog) Watershed(office string, name string) (*models.MWatershed, error) {
	watersheds, err := c.Watersheds()
	if err != nil {
		return nil, err
	}
	for i := range watersheds {
		if strings.EqualFold(watersheds[i].OfficeSymbol, office) && strings.EqualFold(watersheds[i].Name, name) {
			return &watersheds[i], nil
		}
	}
	return nil, helpers.NewConfigurationError(fmt.Sprintf("no watershed %s-%s", office, name), nil)
}

// -----------------------------------------------------------------------------

// WatershedLabels maps display labels like LRH-Kanawha to watershed ids.
func (c *Catalog) WatershedLabels() (map[string]string, error) {
	watersheds, err := c.Watersheds()
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(watersheds))
	for _, w := range watersheds {
		labels[fmt.Sprintf("%s-%s", w.OfficeSymbol, w.Name)] = w.ID
	}
	return labels, nil
}

// -----------------------------------------------------------------------------

// ProductLabels maps title-cased product names to product ids.
func (c *Catalog) ProductLabels() (map[string]string, error) {
	products, err := c.Products()
	if err != nil {
		return nil, err
	}
	title := cases.Title(language.AmericanEnglish)
	labels := make(map[string]string, len(products))
	for _, p := range products {
		labels[title.String(strings.ReplaceAll(p.Name, "_", " "))] = p.ID
	}
	return labels, nil
}

// -----------------------------------------------------------------------------

// ExtractEndpoint fills the watershed slug into the extract endpoint path.
func (c *Catalog) ExtractEndpoint(w *models.MWatershed) string {
	slug := w.Slug
	if slug == "" {
		slug = utils.Slugify(w.Name)
	}
	return fmt.Sprintf("watersheds/%s/extract", slug)
}
