package gateway

import "strings"

// Route 一条静态代理路由
//
// 外部前缀到下游服务的映射是显式枚举的，改写规则随路由携带，
// 不做级联字符串替换。
type Route struct {
	// Prefix 网关侧的资源前缀（如 /api/items）
	Prefix string

	// Service 下游服务名（注册表里的键）
	Service string

	// BasePath 下游侧的基础路径（如 /items），
	// 也是前缀后没有剩余路径时的兜底
	BasePath string
}

// defaultRoutes 网关的静态路由表
//
// 认证和用户资源都落在 user-service 上，前缀不同、改写目标不同。
func defaultRoutes() []Route {
	return []Route{
		{Prefix: "/api/auth", Service: "user-service", BasePath: "/auth"},
		{Prefix: "/api/users", Service: "user-service", BasePath: "/users"},
		{Prefix: "/api/items", Service: "item-service", BasePath: "/items"},
		{Prefix: "/api/lists", Service: "list-service", BasePath: "/lists"},
	}
}

// rewritePath 把外部路径改写为下游期望的内部路径
//
// 剥掉资源前缀，剩余部分拼在 BasePath 后面；剩余部分为空时
// 退化为 BasePath 本身，保证结果永远是非空且以斜杠开头。
func (r Route) rewritePath(external string) string {
	rest := strings.TrimPrefix(external, r.Prefix)
	if rest == "" || rest == "/" {
		return r.BasePath
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return r.BasePath + rest
}
