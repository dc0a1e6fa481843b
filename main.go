package main

import (
	"bounty-uploader/app"
	"bounty-uploader/pkg/observability"
)

func main() {
	observability.StartProfiling("bounty-uploader")
	app.Run()
}
