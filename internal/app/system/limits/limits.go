// internal/app/system/limits/limits.go
package limits

// Request size limits. These keep a single request from exhausting memory
// and bound the text users can store.
const (
	// MaxJSONBody is the largest JSON request body Decode will read.
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxChatRunes bounds a chat message after markup is stripped.
	MaxChatRunes = 1000
)
