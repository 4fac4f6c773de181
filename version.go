package stratum

// Version is the library and CLI version. Release builds override it via
// -ldflags "-X github.com/strataconf/stratum.Version=...".
var Version = "0.1.0-dev"
