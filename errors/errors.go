package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
	ErrEmptyName         = fmt.Errorf("display name is empty")
	ErrNoDisplayName     = fmt.Errorf("session has no display name")
	ErrUnknownSession    = fmt.Errorf("unknown session")
	ErrUnknownRoom       = fmt.Errorf("unknown room")
	ErrMessageNotFound   = fmt.Errorf("message not found")
	ErrRecipientOffline  = fmt.Errorf("recipient is offline")
	ErrNotAudioPayload   = fmt.Errorf("voice payload is not audio")
)
