package db

// timeLayout is fixed-width and UTC so that text ordering matches time ordering.
const timeLayout = "2006-01-02 15:04:05.000"

// DefaultRecentLimit bounds request log reads when the caller passes no limit.
const DefaultRecentLimit = 100
