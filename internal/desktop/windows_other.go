//go:build !linux && !darwin

package desktop

import "go.uber.org/zap"

func NewWindows(Runner, *zap.Logger) (Windows, error) {
	return nil, ErrUnsupported
}

func openCommand(url string) (string, []string) {
	return "rundll32", []string{"url.dll,FileProtocolHandler", url}
}
