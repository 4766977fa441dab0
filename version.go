package commandhost

// Version is the command host release, matched against the "requires"
// constraint of persisted access overrides.
const Version = "1.0.0"
