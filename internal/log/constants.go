package log

const (
	KeyAppName            = "app"
	KeyRequestID          = "requestId"
	KeyTraceID            = "traceId"
	KeySpanID             = "spanId"
	KeyProcess            = "process"
	KeyTag                = "tag"
	KeyConfig             = "config"
	KeyRequest            = "request"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestIP          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyRequestProcessedAt = "requestProcessedAt"
	KeyStatusCode         = "statusCode"

	KeyEmail       = "email"
	KeyToken       = "token"
	KeySession     = "session"
	KeyStorageKey  = "storageKey"
	KeyCacheKey    = "cacheKey"
	KeyURL         = "url"
	KeyAttempt     = "attempt"
	KeyBackoff     = "backoff"
	KeyDbURL       = "dbUrl"
	KeyQuery       = "query"
	KeyFilter      = "filter"
	KeyCategoryID  = "categoryId"
	KeyCategories  = "categories"
	KeyProductID   = "productId"
	KeyProduct     = "product"
	KeyProducts    = "products"
	KeyCart        = "cart"
	KeyCartItems   = "cartItems"
	KeyCartCount   = "cartCount"
	KeyQuantity    = "quantity"
	KeyOrderNumber = "orderNumber"
	KeyOrder       = "order"
	KeyTotal       = "total"
	KeyNotice      = "notice"
	KeyNoticeKind  = "noticeKind"
)
