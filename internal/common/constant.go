package common

// AuthorizationHeaderName is the HTTP header (and lower-cased gRPC metadata key)
// carrying the access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix must prefix the token in AuthorizationHeaderName. Matching is
// case-sensitive.
const BearerPrefix = "Bearer "
