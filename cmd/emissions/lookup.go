package main

import (
	"context"
	"fmt"
	"io"

	"github.com/deppfellow/emission-lookup/internal/lib/utils"
	"github.com/deppfellow/emission-lookup/internal/repository"
	"github.com/deppfellow/emission-lookup/internal/service"
	"github.com/spf13/cobra"
)

var (
	lookupStrict bool
	lookupJSON   bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up a single value and print it",
	Long: `Looks up one value and prints it on stdout.

Without --strict a missing key or an unreachable database prints 0, exactly
as the HTTP API answers without ?strict=true.`,
}

var lookupDeviceCmd = &cobra.Command{
	Use:   "device [name]",
	Short: "Emission value of a device",
	Args:  cobra.ExactArgs(1),
	RunE:  lookupRunner(repository.KindDevice),
}

var lookupVehicleCmd = &cobra.Command{
	Use:   "vehicle [type]",
	Short: "Emission value of a vehicle type",
	Args:  cobra.ExactArgs(1),
	RunE:  lookupRunner(repository.KindVehicle),
}

var lookupTrafficCmd = &cobra.Command{
	Use:   "traffic [level]",
	Short: "Multiplier of a traffic level",
	Args:  cobra.ExactArgs(1),
	RunE:  lookupRunner(repository.KindTraffic),
}

// lookupResult is the --json output.
type lookupResult struct {
	Kind  repository.Kind `json:"kind"`
	Key   string          `json:"key"`
	Value float64         `json:"value"`
}

func lookupRunner(kind repository.Kind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		srv, err := newServer()
		if err != nil {
			return err
		}
		defer srv.Shutdown(context.Background())

		services := service.NewServices(srv, repository.NewRepositories(srv))
		value, err := lookup(cmd.Context(), services.Emission, kind, args[0], lookupStrict)
		if err != nil {
			return err
		}

		return printLookup(cmd.OutOrStdout(), lookupResult{Kind: kind, Key: args[0], Value: value}, lookupJSON)
	}
}

func lookup(ctx context.Context, emission *service.EmissionService, kind repository.Kind, key string, strict bool) (float64, error) {
	if strict {
		return emission.Lookup(ctx, kind, key)
	}

	switch kind {
	case repository.KindDevice:
		return emission.GetDeviceEmission(ctx, key), nil
	case repository.KindVehicle:
		return emission.GetVehicleEmission(ctx, key), nil
	case repository.KindTraffic:
		return emission.GetTrafficFactor(ctx, key), nil
	}
	return 0, fmt.Errorf("unknown lookup kind %q", kind)
}

func printLookup(w io.Writer, result lookupResult, asJSON bool) error {
	if asJSON {
		return utils.PrintJSON(w, result)
	}
	_, err := fmt.Fprintln(w, utils.FormatValue(result.Value))
	return err
}
