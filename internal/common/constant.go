package common

// AuthorizationHeaderName carries "Bearer <token>" on authenticated requests.
const AuthorizationHeaderName = "Authorization"

// TokenType is returned alongside every issued access token.
const TokenType = "bearer"
