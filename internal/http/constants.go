package http

const (
	KeyHeaderContentType       = "Content-Type"
	KeyHeaderRequestID         = "X-Request-Id"
	KeyHeaderAuthorization     = "Authorization"
	ValueHeaderApplicationJson = "application/json"
	ValueBearerPrefix          = "Bearer "
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
