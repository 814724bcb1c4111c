package resource

import "net/http"

// Method is the verb of a resource, and the request body for a POST.
type Method struct {
	name string
	body []byte
}

// MethodGet retrieves a resource.
var MethodGet = Method{name: http.MethodGet}

// MethodPost submits body to a resource.
func MethodPost(body []byte) Method {
	return Method{name: http.MethodPost, body: body}
}

// String returns the HTTP verb, "GET" or "POST".
func (m Method) String() string {
	if m.name == "" {
		return http.MethodGet
	}
	return m.name
}

// Body returns the payload of a POST, or nil for a GET.
func (m Method) Body() []byte {
	return m.body
}

// IsPost reports whether the method carries a body.
func (m Method) IsPost() bool {
	return m.name == http.MethodPost
}

// Map transforms the body of a POST. A GET is returned unchanged.
func (m Method) Map(transform func([]byte) []byte) Method {
	if !m.IsPost() {
		return m
	}
	return MethodPost(transform(m.body))
}
