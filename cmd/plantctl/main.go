// Command plantctl evaluates readings and inspects stored plant data from the
// command line without a running server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"basilcare/plant-hub/internal/activity"
	"basilcare/plant-hub/internal/config"
	"basilcare/plant-hub/internal/ecology"
	"basilcare/plant-hub/internal/model"
	"basilcare/plant-hub/internal/store"
)

var (
	dbPath  string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "plantctl",
	Short:         "Inspect plant health from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single reading",
	Long: `Run the ecological model on a reading given as flags and print the
evaluation as JSON. Temperature is read in the unit given by --unit.`,
	RunE: runEvaluate,
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios [name]",
	Short: "List simulator presets or evaluate one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScenarios,
}

var activitiesCmd = &cobra.Command{
	Use:   "activities <plant-id>",
	Short: "Show the activity timeline for a stored plant",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivities,
}

func init() {
	defaultDB := config.Default().DatabasePath
	if v := os.Getenv("PLANTCARE_DATABASE_PATH"); v != "" {
		defaultDB = v
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "SQLite database path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Operation timeout")

	evaluateCmd.Flags().Float64("moisture", 50, "Soil moisture percent")
	evaluateCmd.Flags().Float64("temp", 22, "Temperature")
	evaluateCmd.Flags().Float64("humidity", 55, "Relative humidity percent")
	evaluateCmd.Flags().Float64("light", 60, "Light level percent")
	evaluateCmd.Flags().String("unit", "celsius", "Temperature unit (celsius|fahrenheit)")

	activitiesCmd.Flags().Int("days", config.Default().HistoryDays, "History window in days")

	rootCmd.AddCommand(evaluateCmd, scenariosCmd, activitiesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	moisture, _ := flags.GetFloat64("moisture")
	temp, _ := flags.GetFloat64("temp")
	humidity, _ := flags.GetFloat64("humidity")
	light, _ := flags.GetFloat64("light")
	unitName, _ := flags.GetString("unit")

	unit, err := model.ParseTemperatureUnit(unitName)
	if err != nil {
		return err
	}

	reading := model.SensorReading{
		SoilMoisture: moisture,
		Temperature:  model.ToCelsius(temp, unit),
		Humidity:     humidity,
		Light:        light,
		Timestamp:    time.Now().UTC(),
	}

	ev, _ := ecology.Evaluate(ecology.Input{Reading: &reading})
	return printJSON(cmd.OutOrStdout(), ev)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		for _, name := range ecology.Scenarios() {
			r, err := ecology.Scenario(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-12s moisture=%-5s temp=%-5s humidity=%-5s light=%s\n",
				name, trim(r.SoilMoisture), trim(r.Temperature), trim(r.Humidity), trim(r.Light))
		}
		return nil
	}

	reading, err := ecology.Scenario(args[0])
	if err != nil {
		return fmt.Errorf("%w: %s (have %s)", err, args[0], strings.Join(ecology.Scenarios(), ", "))
	}
	reading.Timestamp = time.Now().UTC()

	ev, _ := ecology.Evaluate(ecology.Input{Reading: &reading})
	return printJSON(out, ev)
}

func runActivities(cmd *cobra.Command, args []string) error {
	plantID := args[0]
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		return fmt.Errorf("days must be positive")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	history, err := db.SensorHistory(ctx, plantID, since)
	if err != nil {
		return err
	}
	careLog, err := db.CareEvents(ctx, plantID, since)
	if err != nil {
		return err
	}

	activities := activity.Detect(history, careLog)
	if len(activities) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no activity for %s in the last %d days\n", plantID, days)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), activities)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func trim(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}
