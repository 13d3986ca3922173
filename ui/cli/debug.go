// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/charmbracelet/log"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/groundwork-sh/groundwork/internal/config"
)

// debugCmd dumps the resolved configuration, viper state, flags and the
// relevant environment variables. Support asks users to paste its output.
var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Print diagnostic information for bug reports",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("--- GROUNDWORK DEBUG ---")
		fmt.Printf("Config file used: %s\n", config.UsedConfigFile())

		dumpJSON("resolved config", appConfig)
		dumpJSON("viper.AllSettings()", viper.AllSettings())

		fmt.Println("-- command flags --")
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			fmt.Printf("%s = %s\n", f.Name, f.Value.String())
		})

		fmt.Println("-- environment (GROUNDWORK*, CONFIG*) --")
		for _, e := range os.Environ() {
			if strings.HasPrefix(e, "GROUNDWORK") || strings.HasPrefix(e, "CONFIG") {
				fmt.Println(e)
			}
		}

		if wd, err := os.Getwd(); err == nil {
			fmt.Printf("working directory: %s\n", wd)
		}
		fmt.Println("--- END GROUNDWORK DEBUG ---")
	},
}

// dumpJSON prints a titled, indented JSON block for any marshalable value.
func dumpJSON(title string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Errorf("could not marshal %s: %v", title, err)
		return
	}
	fmt.Printf("-- %s --\n%s\n", title, b)
}
