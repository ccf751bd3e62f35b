package helpers

import "time"

const (
	dirSuffix         = ".cache/sgtk/bundle_cache"
	defaultHomeDir    = "/root"
	defaultTimeout    = 30 * time.Second
	defaultServerURL  = "https://appstore.studiopipe.io"
	defaultConfigPath = "sgtk.cfg"

	// defaultSinceDays is how long a bundle may go unused before
	// cleanup considers it garbage.
	defaultSinceDays = 90

	// defaultInterpreter is the interpreter version assumed when the
	// caller does not pass one.
	defaultInterpreter = "3.10"
)
