// Package products maps LIFX hardware identities (vendor, product) to
// static capability flags.
//
// A device reports its vendor and product IDs in a StateVersion reply;
// everything else about what the hardware can do: colour support,
// multizone support, whether the extended zone messages are available -
// is looked up here. The table covers the products Lumen Core is known
// to drive; unknown products simply return no capabilities, which keeps
// the registry treating them as plain single-zone lights.
package products

// VendorLIFX is the only vendor ID in the registry today.
const VendorLIFX = 1

// Features describes the static capabilities of one product.
type Features struct {
	// Color is true when the product has full HSB colour control.
	Color bool

	// Multizone is true when the product exposes individually
	// addressable zones (strips and beams).
	Multizone bool

	// ExtendedMultizone is true when the product understands the
	// extended zone messages that carry the whole array in one packet.
	ExtendedMultizone bool
}

// Product is one entry in the capability registry.
type Product struct {
	Vendor   uint32
	ID       uint32
	Name     string
	Features Features
}

// registry is keyed by vendor<<32|product for a single-map lookup.
var registry = map[uint64]Product{}

func register(p Product) {
	registry[uint64(p.Vendor)<<32|uint64(p.ID)] = p
}

//nolint:mnd // product IDs are wire constants from the LIFX registry
func init() {
	color := Features{Color: true}
	white := Features{}
	strip := Features{Color: true, Multizone: true}
	extStrip := Features{Color: true, Multizone: true, ExtendedMultizone: true}

	for _, p := range []Product{
		{VendorLIFX, 1, "LIFX Original 1000", color},
		{VendorLIFX, 3, "LIFX Color 650", color},
		{VendorLIFX, 10, "LIFX White 800 (Low Voltage)", white},
		{VendorLIFX, 11, "LIFX White 800 (High Voltage)", white},
		{VendorLIFX, 18, "LIFX White 900 BR30 (Low Voltage)", white},
		{VendorLIFX, 20, "LIFX Color 1000 BR30", color},
		{VendorLIFX, 22, "LIFX Color 1000", color},
		{VendorLIFX, 27, "LIFX A19", color},
		{VendorLIFX, 28, "LIFX BR30", color},
		{VendorLIFX, 29, "LIFX A19 Night Vision", color},
		{VendorLIFX, 30, "LIFX BR30 Night Vision", color},
		{VendorLIFX, 31, "LIFX Z", strip},
		{VendorLIFX, 32, "LIFX Z", extStrip},
		{VendorLIFX, 36, "LIFX Downlight", color},
		{VendorLIFX, 37, "LIFX Downlight", color},
		{VendorLIFX, 38, "LIFX Beam", extStrip},
		{VendorLIFX, 43, "LIFX A19", color},
		{VendorLIFX, 44, "LIFX BR30", color},
		{VendorLIFX, 49, "LIFX Mini Color", color},
		{VendorLIFX, 50, "LIFX Mini White to Warm", white},
		{VendorLIFX, 51, "LIFX Mini White", white},
		{VendorLIFX, 52, "LIFX GU10", color},
		{VendorLIFX, 55, "LIFX Tile", extStrip},
		{VendorLIFX, 57, "LIFX Candle", color},
		{VendorLIFX, 59, "LIFX Mini Color", color},
		{VendorLIFX, 60, "LIFX Mini White to Warm", white},
		{VendorLIFX, 61, "LIFX Mini White", white},
		{VendorLIFX, 66, "LIFX Mini White", white},
		{VendorLIFX, 81, "LIFX Candle White to Warm", white},
		{VendorLIFX, 82, "LIFX Filament Clear", white},
		{VendorLIFX, 85, "LIFX Filament Amber", white},
		{VendorLIFX, 93, "LIFX A19 US", color},
		{VendorLIFX, 117, "LIFX Z US", extStrip},
		{VendorLIFX, 118, "LIFX Z International", extStrip},
		{VendorLIFX, 119, "LIFX Beam US", extStrip},
		{VendorLIFX, 120, "LIFX Beam International", extStrip},
	} {
		register(p)
	}
}

// Lookup returns the product entry for a vendor/product pair.
// The second return is false when the hardware is not in the registry.
func Lookup(vendor, product uint32) (Product, bool) {
	p, ok := registry[uint64(vendor)<<32|uint64(product)]
	return p, ok
}
