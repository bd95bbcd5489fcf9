package httpx

// Response headers carrying the outcome of a request.
const (
	// HeaderRedirect is where the console wants the operator to go next.
	HeaderRedirect = "X-Console-Redirect"
	// HeaderNotice carries one JSON-encoded notice; repeated per notice.
	HeaderNotice = "X-Console-Notice"
	// HeaderRequestID correlates a console request with its logs.
	HeaderRequestID = "X-Request-ID"
)

// Query parameters shared by list endpoints.
const (
	queryPage      = "page"
	queryLimit     = "limit"
	querySortBy    = "sort_by"
	querySortOrder = "sort_order"
)
