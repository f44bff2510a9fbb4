//go:build !linux

package irblaster

func pinToCore(_ int) error {
	return nil
}
