// Command sitepilot serves the SitePilot API.
//
//	@title			SitePilot API
//	@version		1.0
//	@description	SEO audits, result notification, Google reviews and site form emails for the SimpleIT marketing site.
//	@BasePath		/api
package main

import "github.com/simpleit/sitepilot/cmd"

func main() {
	cmd.Execute()
}
