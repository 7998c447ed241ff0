// Package lark is a small client for the Feishu/Lark open platform covering
// Bitable records and fields, group chats and messages, and wiki documents.
//
// Authentication is delegated to a tenanttoken.Provider; the client never
// sees app credentials. Responses use the platform envelope
// {"code", "msg", "data"} and a non-zero code is returned as *APIError.
package lark
