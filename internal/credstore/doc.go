// Package credstore provides storage backends for the application secret that
// is exchanged for tenant access tokens.
//
// Supports three storage backends with different security and deployment tradeoffs:
//   - Env: Read-only environment variable access (FEISHU_APP_SECRET by default)
//   - File: Local file with owner-only permissions and atomic writes
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//
// Only the secret is stored. Tenant access tokens are never persisted.
package credstore
