package types

import "errors"

// ErrorKind tags a ChatError so clients branch on the kind instead of
// substring-matching the human message. The Arabic message is display only.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindBanned      ErrorKind = "banned"
	KindUnknownRoom ErrorKind = "unknown_room"
	KindFlood       ErrorKind = "flood"
	KindMuted       ErrorKind = "muted"
	KindStorage     ErrorKind = "storage"
)

// ChatError is the tagged error surfaced to connections through the outbound
// error event.
type ChatError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ChatError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewAuthError reports a refused or invalid credential.
func NewAuthError() *ChatError {
	return &ChatError{Kind: KindAuth, Message: "فشل التحقق من الهوية"}
}

// NewBannedError is terminal for the handshake; the transport must close.
func NewBannedError(reason string) *ChatError {
	if reason == "" {
		reason = "لم يتم تحديد السبب"
	}
	return &ChatError{Kind: KindBanned, Message: "تم حظرك من الشات: " + reason}
}

// NewUnknownRoomError is recoverable; the client may retry with a valid room.
func NewUnknownRoomError() *ChatError {
	return &ChatError{Kind: KindUnknownRoom, Message: "الغرفة غير موجودة"}
}

// NewFloodError reports that the send-rate threshold was exceeded and a mute
// was imposed as a side effect.
func NewFloodError() *ChatError {
	return &ChatError{Kind: KindFlood, Message: "تم كتمك لمدة 5 دقائق بسبب الإرسال السريع"}
}

// NewMutedError reports a still-active mute.
func NewMutedError() *ChatError {
	return &ChatError{Kind: KindMuted, Message: "أنت مكتوم حالياً"}
}

// NewStorageError wraps an opaque store failure for the initiating connection.
func NewStorageError() *ChatError {
	return &ChatError{Kind: KindStorage, Message: "حدث خطأ في قاعدة البيانات"}
}

// KindOf extracts the kind of err, or empty when err is not a ChatError.
func KindOf(err error) ErrorKind {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
