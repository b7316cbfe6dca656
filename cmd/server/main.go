package main

import "finportal/internal/app"

// @title                       FinPortal API
// @version                     1.0
// @description                 Session gateway, email verification and notification dispatch for the FinPortal web app.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app.Run()
}
