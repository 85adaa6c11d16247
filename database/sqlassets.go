package sqlassets

import _ "embed"

//go:embed schema/park_configurations.sql
var ParkConfigurationsSQL string

//go:embed schema/oauth_tokens.sql
var OAuthTokensSQL string

//go:embed schema/booking_snapshots.sql
var BookingSnapshotsSQL string
