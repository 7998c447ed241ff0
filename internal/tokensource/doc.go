// Package tokensource exchanges Feishu/Lark application credentials for a
// tenant access token.
//
// The token endpoint deviates from OAuth2 client credentials in a few ways
// that rule out golang.org/x/oauth2/clientcredentials:
//   - Credentials travel as a JSON body ({"app_id", "app_secret"}), not form-encoded
//   - Errors are reported in a {"code", "msg"} envelope, often with HTTP 200
//   - Lifetime is reported in seconds as "expire", not "expires_in"
//
// # Usage
//
//	src := tokensource.New(tokensource.Endpoint)
//	tok, err := src.Fetch(ctx, tenanttoken.Credentials{AppID: id, AppSecret: secret})
//
// # Custom Base Transport
//
// Configure a custom base transport for token requests (e.g., for proxies or custom timeouts):
//
//	src := tokensource.New(
//		tokensource.EndpointFor(tokensource.LarkBaseURL),
//		tokensource.WithTransport(customTransport),
//	)
package tokensource
