package routes

// Routes package provides all routing functions for the address audit
// service.
//
// Layout:
// - api.go: API routes (/compare, /v1/admin/*)
// - web.go: Web routes (/, /docs, /status)
// - routes.go: package doc
//
// Usage:
// routes.SetupAllRoutes(router, compareController, adminController)
