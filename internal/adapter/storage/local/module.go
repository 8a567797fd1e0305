package local

import "go.uber.org/fx"

// Module registers the local storage adapter factory. Registration happens in
// init; including this module in the application graph guarantees the import.
var Module = fx.Options()
