package common

// AuthorizationHeaderName carries the bearer access token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the auth scheme prefix expected in AuthorizationHeaderName.
const BearerScheme = "Bearer"

// DefaultUserRole is assigned to users created without an explicit role.
const DefaultUserRole = "User"

// RefreshTokenBytes is the amount of random data behind one refresh token.
const RefreshTokenBytes = 32
