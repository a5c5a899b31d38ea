package constants

const (
	AppStorefront = "storefront"
	AppCatalog    = "storefront-catalog"
	AppProduct    = "storefront-product"
	AppCart       = "storefront-cart"
	AppSession    = "storefront-session"
	AppOrder      = "storefront-order"
	AppKV         = "storefront-kv"
)
