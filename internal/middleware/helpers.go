package middleware

import "github.com/gin-gonic/gin"

// GetUserID gets the authenticated user ID from context.
func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// GetCompanyID gets the caller's company ID from context.
func GetCompanyID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("company_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// MustGetUserID gets the user ID from context or panics.
func MustGetUserID(c *gin.Context) int64 {
	id, ok := GetUserID(c)
	if !ok {
		panic("user_id not found in context")
	}
	return id
}

// MustGetCompanyID gets the company ID from context or panics.
func MustGetCompanyID(c *gin.Context) int64 {
	id, ok := GetCompanyID(c)
	if !ok {
		panic("company_id not found in context")
	}
	return id
}

// GetRole gets the caller's role from context, empty when unauthenticated.
func GetRole(c *gin.Context) string {
	v, exists := c.Get("role")
	if !exists {
		return ""
	}
	role, ok := v.(string)
	if !ok {
		return ""
	}
	return role
}

// MustGetJTI gets the session token ID from context or panics.
func MustGetJTI(c *gin.Context) string {
	v, exists := c.Get("jti")
	if !exists {
		panic("jti not found in context")
	}
	jti, ok := v.(string)
	if !ok {
		panic("jti has unexpected type")
	}
	return jti
}
