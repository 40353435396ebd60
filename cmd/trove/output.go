package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/khanhct/trove/internal/model"
	"github.com/khanhct/trove/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printConfigurationTable(g *model.ConfigurationGroup) {
	fmt.Printf("ID:          %s\n", g.ID)
	fmt.Printf("Name:        %s\n", g.Name)
	if g.Description != "" {
		fmt.Printf("Description: %s\n", g.Description)
	}
	fmt.Printf("Datastore:   %s %s\n", g.DatastoreName, g.DatastoreVersionName)
	fmt.Printf("Instances:   %d\n", g.InstanceCount)
	fmt.Printf("Created:     %s\n", g.Created)
	fmt.Printf("Updated:     %s\n", g.Updated)

	if len(g.Values) > 0 {
		keys := make([]string, 0, len(g.Values))
		for k := range g.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("Values:")
		for _, k := range keys {
			fmt.Printf("  %s = %v\n", k, g.Values[k])
		}
	}
}

func printConfigurationListTable(groups []*model.ConfigurationGroup) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATASTORE\tVERSION\tINSTANCES\tUPDATED")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			g.ID, g.Name, g.DatastoreName, g.DatastoreVersionName, g.InstanceCount, g.Updated)
	}
	w.Flush()
	fmt.Printf("\n%d configuration groups\n", len(groups))
}

func printInstanceTable(inst *model.Instance) {
	fmt.Printf("ID:        %s\n", inst.ID)
	fmt.Printf("Name:      %s\n", inst.Name)
	fmt.Printf("Datastore: %s\n", inst.DatastoreName)
	fmt.Printf("Status:    %s\n", ui.RenderStatus(string(inst.Status)))
	if inst.Configuration != nil {
		fmt.Printf("Config:    %s (%s)\n", inst.Configuration.Name, inst.Configuration.ID)
	}
	fmt.Printf("Created:   %s\n", inst.Created)
	fmt.Printf("Updated:   %s\n", inst.Updated)
}

func printInstanceSummaryTable(instances []*model.InstanceSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\n", inst.ID, inst.Name)
	}
	w.Flush()
	fmt.Printf("\n%d attached instances\n", len(instances))
}

func printParameterTable(p *model.ConfigurationParameter) {
	fmt.Printf("Name:             %s\n", p.Name)
	fmt.Printf("Type:             %s\n", p.Type)
	if p.Min != nil {
		fmt.Printf("Min:              %d\n", *p.Min)
	}
	if p.Max != nil {
		fmt.Printf("Max:              %d\n", *p.Max)
	}
	fmt.Printf("Restart required: %t\n", p.RestartRequired)
}

func printParameterListTable(params []*model.ConfigurationParameter) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tMIN\tMAX\tRESTART")
	for _, p := range params {
		min, max := "", ""
		if p.Min != nil {
			min = fmt.Sprintf("%d", *p.Min)
		}
		if p.Max != nil {
			max = fmt.Sprintf("%d", *p.Max)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", p.Name, p.Type, min, max, p.RestartRequired)
	}
	w.Flush()
	fmt.Printf("\n%d parameters\n", len(params))
}
