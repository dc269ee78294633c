//go:build tinygo

package main

import (
	"lark/app"
	"lark/hal"
)

func main() {
	h := hal.New()
	if err := app.Run(h, app.Config{}); err != nil {
		h.Logger().WriteLineString("lark: " + err.Error())
	}
	select {}
}
