package appidentityassets

import _ "embed"

// YAML is the embedded copy of `.fulmen/app.yaml` used when the binary runs
// outside the repository. Keep the two files identical.
//
//go:embed app.yaml
var YAML []byte
