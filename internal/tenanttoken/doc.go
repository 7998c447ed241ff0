// Package tenanttoken manages the lifetime of a Feishu/Lark tenant access token.
//
// A Manager caches one token per process, renews it once it enters the
// refresh buffer before expiry, and guarantees at most one remote fetch in
// flight no matter how many goroutines ask for a token at once.
//
// # Usage
//
//	m, err := tenanttoken.New(
//		tenanttoken.Credentials{AppID: id, AppSecret: secret},
//		tokensource.New(tokensource.Endpoint),
//	)
//	client := &http.Client{Transport: &tenanttoken.Transport{Tokens: m}}
//
// # Failure handling
//
// The manager never retries. Transport and malformed-response failures
// degrade to the cached token while it has not hard-expired; a rejection of
// the credentials clears the cache and is returned to the caller. Use
// Retryable to classify returned errors.
package tenanttoken
