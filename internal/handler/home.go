package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const landingPage = `<html>
    <head>
        <title>Support Backend API</title>
    </head>
    <body>
        <h1>Support Backend API</h1>
        <p>Manage users, profiles and orders. Every request is written to the request log.</p>

        <h2>Endpoints</h2>
        <ul>
            <li><strong>POST /token</strong> - get a JWT for a username and password</li>
            <li><strong>POST /users/</strong> - create a user (token required)</li>
            <li><strong>GET /users/</strong> - list users (token required)</li>
            <li><strong>GET /users/{user_id}</strong> - get a user by id (token required)</li>
            <li><strong>PUT /users/{user_id}</strong> - update a user (token required)</li>
            <li><strong>DELETE /users/{user_id}</strong> - delete a user (token required)</li>
            <li><strong>GET|PUT /users/{user_id}/profile</strong> - user profile (token required)</li>
            <li><strong>GET /users/{user_id}/orders</strong>, <strong>POST /orders</strong> - orders (token required)</li>
            <li><strong>GET|POST /roles</strong>, <strong>PUT /users/{user_id}/roles</strong> - roles (token required)</li>
            <li><strong>GET /admin/request-logs</strong> - recent request log records (admin)</li>
            <li><strong>GET /metrics</strong> - Prometheus metrics</li>
        </ul>

        <p><strong>Authentication:</strong> call <code>/token</code> with
           username <code>admin</code> and password <code>secret</code> on a default install.</p>
    </body>
</html>
`

func Home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(landingPage))
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "supportgate"})
}

// NotFound and MethodNotAllowed answer inside the middleware chain so the
// request log sees the same body the client gets.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
}

func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method Not Allowed"})
}
