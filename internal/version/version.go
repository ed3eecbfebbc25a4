// Package version holds the TorchBridge build version.
package version

// Version is set at build time with:
//
//	go build -ldflags "-X github.com/AaronLay10/TorchBridge/internal/version.Version=x.y.z"
var Version = "0.3.0-dev"
