package main

import (
	"fmt"
	"sort"

	"github.com/go-go-golems/chronicle/pkg/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage a conversation's model and generation parameters",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the conversation's settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			svc := openSettings()

			model, err := svc.Model(id, viper.GetString("default-model"))
			if err != nil {
				return err
			}
			fmt.Printf("model: %s\n", model)

			config, err := svc.GenerationConfig(id)
			if err != nil {
				return err
			}
			values := config.Values()
			for _, k := range settings.SchemaKeys() {
				if v, ok := values[k]; ok {
					fmt.Printf("%s: %v\n", k, v)
				} else {
					fmt.Printf("%s: (default)\n", k)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a generation parameter or the model",
		Long: fmt.Sprintf("Set a generation parameter (%v) or the model (key \"model\").",
			settings.SchemaKeys()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			svc := openSettings()

			if args[0] == "model" {
				return svc.SetModel(id, args[1])
			}
			return svc.SetGenerationValue(id, args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset [key]",
		Short: "Reset one generation parameter, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			svc := openSettings()

			configKey := ""
			if len(args) == 1 {
				configKey = args[0]
			}
			return svc.ResetGeneration(id, configKey)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List the generation parameter schema",
		Run: func(cmd *cobra.Command, args []string) {
			keys := settings.SchemaKeys()
			sort.Strings(keys)
			for _, k := range keys {
				spec := settings.GenerationSchema[k]
				fmt.Printf("%s (%s, %v..%v)\n", k, spec.Type, spec.Min, spec.Max)
			}
		},
	})

	return cmd
}
