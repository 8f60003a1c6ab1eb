package domain

// Provider codes. The catalog is immutable at runtime; anything arriving on a
// webhook route that is not listed here is a routing bug, not tenant data.
const (
	ProviderStripe        = "stripe"
	ProviderPayPal        = "paypal"
	ProviderPayU          = "payu"
	ProviderMercadoPago   = "mercadopago"
	ProviderMetaMarketing = "meta_marketing"
)

// Provider is a catalog entry for an external payment or messaging system.
type Provider struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Connector links a provider to a named integration capability. One provider
// may expose several connectors (e.g. client payments vs catalog sync).
type Connector struct {
	ProviderCode string `json:"provider_code"`
	Capability   string `json:"capability"`
	Name         string `json:"name"`
}

var providerCatalog = []Provider{
	{Code: ProviderStripe, Name: "Stripe"},
	{Code: ProviderPayPal, Name: "PayPal"},
	{Code: ProviderPayU, Name: "PayU Latam"},
	{Code: ProviderMercadoPago, Name: "Mercado Pago"},
	{Code: ProviderMetaMarketing, Name: "Meta Marketing"},
}

var connectorCatalog = []Connector{
	{ProviderCode: ProviderStripe, Capability: "client_payments", Name: "Stripe Payments"},
	{ProviderCode: ProviderPayPal, Capability: "client_payments", Name: "PayPal Checkout"},
	{ProviderCode: ProviderPayU, Capability: "client_payments", Name: "PayU WebCheckout"},
	{ProviderCode: ProviderMercadoPago, Capability: "client_payments", Name: "Mercado Pago Checkout"},
	{ProviderCode: ProviderMetaMarketing, Capability: "catalog_sync", Name: "Meta Catalog Sync"},
}

// Catalog returns the provider catalog.
func Catalog() []Provider {
	out := make([]Provider, len(providerCatalog))
	copy(out, providerCatalog)
	return out
}

// Connectors returns the connectors exposed by a provider.
func Connectors(providerCode string) []Connector {
	var out []Connector
	for _, c := range connectorCatalog {
		if c.ProviderCode == providerCode {
			out = append(out, c)
		}
	}
	return out
}

// ProviderByCode looks up a catalog entry.
func ProviderByCode(code string) (Provider, bool) {
	for _, p := range providerCatalog {
		if p.Code == code {
			return p, true
		}
	}
	return Provider{}, false
}
