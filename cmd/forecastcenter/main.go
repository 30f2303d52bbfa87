// Command forecastcenter serves and exports the forecasting dashboard.
package main

import "os"

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.stopProfile()
	if err != nil {
		os.Exit(1)
	}
}
