//go:build !(linux && (amd64 || arm64))

package hints

func platformAdvisor() Advisor {
	return NoopAdvisor{}
}
