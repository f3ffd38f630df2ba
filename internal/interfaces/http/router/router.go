package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIPrefix is where the ledger API is mounted
const APIPrefix = "/api/v1"

// Router mounts resource groups under APIPrefix behind shared middleware
type Router struct {
	engine     *gin.Engine
	middleware []gin.HandlerFunc
	groups     []*ResourceGroup
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithMiddleware adds middleware to the API group only
func WithMiddleware(middleware ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, middleware...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues groups for Setup
func (r *Router) Register(groups ...*ResourceGroup) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup registers all queued groups with the engine
func (r *Router) Setup() {
	api := r.engine.Group(APIPrefix)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, g := range r.groups {
		g.register(api)
	}
}

// BatchPaths returns the full route patterns of every batch route, as
// gin reports them from Context.FullPath.
func (r *Router) BatchPaths() []string {
	var paths []string
	for _, g := range r.groups {
		for _, rt := range g.routes {
			if rt.batch {
				paths = append(paths, APIPrefix+g.prefix+rt.path)
			}
		}
	}
	return paths
}

// ResourceGroup holds the routes of one ledger resource
type ResourceGroup struct {
	prefix string
	routes []route
}

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
	// batch bodies carry many students or allocations
	batch bool
}

// Resource starts a group under prefix, e.g. "/accounts"
func Resource(prefix string) *ResourceGroup {
	return &ResourceGroup{prefix: prefix}
}

// GET registers a read route
func (g *ResourceGroup) GET(path string, h gin.HandlerFunc) *ResourceGroup {
	return g.add(route{method: http.MethodGet, path: path, handler: h})
}

// POST registers a write route
func (g *ResourceGroup) POST(path string, h gin.HandlerFunc) *ResourceGroup {
	return g.add(route{method: http.MethodPost, path: path, handler: h})
}

// BatchPOST registers a write route subject to the batch body limit
func (g *ResourceGroup) BatchPOST(path string, h gin.HandlerFunc) *ResourceGroup {
	return g.add(route{method: http.MethodPost, path: path, handler: h, batch: true})
}

func (g *ResourceGroup) add(r route) *ResourceGroup {
	g.routes = append(g.routes, r)
	return g
}

func (g *ResourceGroup) register(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix)
	for _, r := range g.routes {
		group.Handle(r.method, r.path, r.handler)
	}
}
