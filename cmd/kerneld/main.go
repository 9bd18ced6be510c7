// kerneld is a thin cobra-based demo binary for manually exercising a
// cognitive Kernel: spawn processes, think, inspect the process table and
// atomspace, and trigger a replication sync. The kernel itself is an
// embedded library (spec §6); this binary is purely a driver, matching
// the teacher's cmd/echo.go cobra-command style (🌊 banners included).
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/echokernel/cogkernel/core/kernel"
	"github.com/echokernel/cogkernel/core/process"
	"github.com/echokernel/cogkernel/core/scheduler"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var k *kernel.Kernel

func main() {
	root := &cobra.Command{
		Use:   "kerneld",
		Short: "🌊 Cognitive kernel runtime demo CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			k = buildKernel()
			return nil
		},
	}

	root.PersistentFlags().String("node-id", "node-1", "cluster node identity")
	root.PersistentFlags().String("policy", "consciousness_aware", "scheduler policy: round_robin | priority | consciousness_aware")
	viper.BindPFlag("node_id", root.PersistentFlags().Lookup("node-id"))
	viper.BindPFlag("policy", root.PersistentFlags().Lookup("policy"))
	viper.SetEnvPrefix("KERNELD")
	viper.AutomaticEnv()

	root.AddCommand(spawnCmd(), thinkCmd(), psCmd(), atomsCmd(), syncCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildKernel() *kernel.Kernel {
	nodeID := viper.GetString("node_id")
	if nodeID == "" {
		nodeID = "node-1"
	}
	cfg := kernel.DefaultConfig(nodeID)

	switch viper.GetString("policy") {
	case "round_robin":
		cfg.SchedulerPolicy = scheduler.RoundRobin
	case "priority":
		cfg.SchedulerPolicy = scheduler.PriorityPolicy
	default:
		cfg.SchedulerPolicy = scheduler.ConsciousnessAware
	}

	return kernel.New(cfg)
}

func spawnCmd() *cobra.Command {
	var name, role string
	var priority int
	cmd := &cobra.Command{
		Use:   "spawn",
		Short: "Spawn a cognitive process",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := k.SpawnAgent(0, process.Config{Name: name, Role: role, Priority: priority})
			if err != nil {
				return err
			}
			fmt.Printf("🌊 spawned pid=%d name=%q\n", res.Pid, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "agent", "process name")
	cmd.Flags().StringVar(&role, "role", "", "process role")
	cmd.Flags().IntVar(&priority, "priority", 5, "priority [0,10], lower = more urgent")
	return cmd
}

func thinkCmd() *cobra.Command {
	var pid int
	var input string
	cmd := &cobra.Command{
		Use:   "think",
		Short: "Issue a think() syscall for a process",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := k.Think(process.Pid(pid), input, map[string]any{})
			if err != nil {
				return err
			}
			fmt.Printf("thought atom=%s at %s\n", res.AtomID, res.Timestamp.Format("15:04:05.000"))
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "caller pid")
	cmd.Flags().StringVar(&input, "input", "", "thought input")
	cmd.MarkFlagRequired("pid")
	return cmd
}

func psCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "List live processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"PID", "Name", "State", "Priority", "Level", "Emotion"})
			for _, s := range k.Ps() {
				table.Append([]string{
					strconv.Itoa(int(s.Pid)), s.Name, s.State.String(),
					strconv.Itoa(s.Priority), strconv.Itoa(s.ConsciousnessLevel), s.Emotion.Type,
				})
			}
			table.Render()
			return nil
		},
	}
}

func atomsCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "atoms",
		Short: "Show the top-attention atoms",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Kind", "Type", "Name", "Attention"})
			for _, a := range k.Store().GetTopAttention(top) {
				table.Append([]string{a.ID, a.Kind.String(), a.Type, a.Name, fmt.Sprintf("%.3f", a.Attention)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of atoms to show")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Trigger a replication sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := k.Replicator().Sync(context.Background())
			if err != nil {
				return err
			}
			if res.TooSoon {
				fmt.Println("sync skipped: too soon since last sync")
				return nil
			}
			fmt.Printf("synced with %d peers\n", len(res.Acks))
			return nil
		},
	}
}
