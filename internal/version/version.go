package version

// Set at build time with -ldflags "-X github.com/Layr-Labs/ve-rewards/internal/version.Version=..."
var (
	Version = "v0.0.0"
	Commit  = "unknown"
)

func GetVersion() string {
	return Version
}

func GetCommit() string {
	return Commit
}
