package window

import (
	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------
// Window resolver. Compares the requested fetch window against what the
// store already holds, product by product, and narrows the request so the
// provider is only asked for missing spans. The stored extent is a single
// start/end summary, so interior gaps inside it are not refetched.
// -----------------------------------------------------------------------------

// ExtentLookup resolves the stored extent for one product. A nil extent
// means nothing is stored yet.
type ExtentLookup func(product models.MProduct) (*models.MStoredExtent, error)

// -----------------------------------------------------------------------------

// Resolve trims the requested window against the stored extents of the
// observed products and drops products whose extent already contains the
// whole request. Forecast products are never consulted and always kept,
// since each forecast issuance is new data regardless of stored history.
// Trims accumulate on the shared window in product order.
func Resolve(requested models.MFetchWindow, products []models.MProduct, lookup ExtentLookup) (models.MFetchWindow, []models.MProduct, error) {
	resolved := requested
	kept := make([]models.MProduct, 0, len(products))

	for _, product := range products {
		if product.IsForecast() {
			kept = append(kept, product)
			continue
		}

		extent, err := lookup(product)
		if err != nil {
			return requested, nil, err
		}
		if extent == nil {
			kept = append(kept, product)
			continue
		}

		coversAfter := !extent.Start.After(resolved.After)
		coversBefore := !resolved.Before.After(extent.End)

		switch {
		case coversAfter && coversBefore:
			// Fully cached, nothing to fetch for this product.
			continue
		case coversAfter && resolved.After.Before(extent.End):
			resolved.After = extent.End
			kept = append(kept, product)
		case resolved.Before.After(extent.Start) && coversBefore:
			resolved.Before = extent.Start
			kept = append(kept, product)
		default:
			kept = append(kept, product)
		}
	}

	return resolved, kept, nil
}
