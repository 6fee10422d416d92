package coverage

// ErrorCase is one endpoint error-path combination worth testing.
type ErrorCase struct {
	Method         string
	URLPattern     string
	ExpectedStatus int
	TestType       string
}

// EndpointSpec describes one known resource of the target API and the
// operations it supports.
type EndpointSpec struct {
	Resource   string
	Base       string
	Methods    []string
	WithID     string
	IDMethods  []string
	Nested     string
	ErrorCases []ErrorCase
}

// DefaultCatalog is the static endpoint catalog for the JSONPlaceholder API.
func DefaultCatalog() []EndpointSpec {
	return []EndpointSpec{
		{
			Resource:  "users",
			Base:      "/users",
			Methods:   []string{"GET", "POST"},
			WithID:    "/users/{id}",
			IDMethods: []string{"GET", "PUT", "PATCH", "DELETE"},
			ErrorCases: []ErrorCase{
				{"GET", "/users/999", 404, "not_found"},
				{"PUT", "/users/999", 404, "not_found"},
				{"PATCH", "/users/999", 404, "not_found"},
				{"DELETE", "/users/999", 404, "not_found"},
			},
		},
		{
			Resource:  "posts",
			Base:      "/posts",
			Methods:   []string{"GET", "POST"},
			WithID:    "/posts/{id}",
			IDMethods: []string{"GET", "PUT", "PATCH", "DELETE"},
			Nested:    "/posts/{id}/comments",
			ErrorCases: []ErrorCase{
				{"GET", "/posts/999", 404, "not_found"},
				{"PUT", "/posts/999", 404, "not_found"},
				{"DELETE", "/posts/999", 404, "not_found"},
			},
		},
		{
			Resource:  "comments",
			Base:      "/comments",
			Methods:   []string{"GET"},
			WithID:    "/comments/{id}",
			IDMethods: []string{"GET"},
			ErrorCases: []ErrorCase{
				{"GET", "/comments/999", 404, "not_found"},
			},
		},
		{
			Resource:  "albums",
			Base:      "/albums",
			Methods:   []string{"GET", "POST"},
			WithID:    "/albums/{id}",
			IDMethods: []string{"GET", "PUT", "PATCH", "DELETE"},
			ErrorCases: []ErrorCase{
				{"GET", "/albums/999", 404, "not_found"},
			},
		},
		{
			Resource:  "photos",
			Base:      "/photos",
			Methods:   []string{"GET", "POST"},
			WithID:    "/photos/{id}",
			IDMethods: []string{"GET", "PUT", "PATCH", "DELETE"},
			ErrorCases: []ErrorCase{
				{"GET", "/photos/999", 404, "not_found"},
			},
		},
		{
			Resource:  "todos",
			Base:      "/todos",
			Methods:   []string{"GET", "POST"},
			WithID:    "/todos/{id}",
			IDMethods: []string{"GET", "PUT", "PATCH", "DELETE"},
			ErrorCases: []ErrorCase{
				{"GET", "/todos/999", 404, "not_found"},
			},
		},
	}
}
