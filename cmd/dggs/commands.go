package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/qri-io/dggs-go"
)

func newCellsCmd(flags *gridFlags) *cobra.Command {
	var lon, lat []float64
	cmd := &cobra.Command{
		Use:   "cells",
		Short: "Print the cell containing each lon/lat pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := flags.descriptor()
			if err != nil {
				return err
			}
			ids, err := d.GeographicToCells(lon, lat)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&lon, "lon", nil, "longitudes in degrees")
	cmd.Flags().Float64SliceVar(&lat, "lat", nil, "latitudes in degrees")
	return cmd
}

func newCentroidsCmd(flags *gridFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "centroids ID...",
		Short: "Print the centroid of each cell",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := flags.descriptor()
			if err != nil {
				return err
			}
			cells, err := dggs.ParseCellIDs(args)
			if err != nil {
				return err
			}
			lon, lat, err := d.CellsToGeographic(cells)
			if err != nil {
				return err
			}
			for i, id := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", id,
					strconv.FormatFloat(lon[i], 'f', -1, 64),
					strconv.FormatFloat(lat[i], 'f', -1, 64))
			}
			return nil
		},
	}
}

func newBoundariesCmd(flags *gridFlags) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "boundaries ID...",
		Short: "Print cell boundaries as a GeoJSON feature collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := flags.descriptor()
			if err != nil {
				return err
			}
			cells, err := dggs.ParseCellIDs(args)
			if err != nil {
				return err
			}
			polygons, err := d.CellsToBoundaries(cells, dggs.Backend(backend))
			if err != nil {
				return err
			}

			fc := geojson.NewFeatureCollection()
			for i, p := range polygons {
				f := geojson.NewFeature(p)
				f.Properties["cell_id"] = args[i]
				f.Properties[dggs.KeyGridName] = d.GridName()
				f.Properties[dggs.KeyLevel] = d.Level()
				fc.Append(f)
			}
			data, err := json.MarshalIndent(fc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", string(dggs.BackendShapely), "boundary backend")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var (
		width   int
		centers bool
	)
	cmd := &cobra.Command{
		Use:   "inspect STORE [GROUP]",
		Short: "Build a cell index from the variables of a zarr group",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := dggs.NewLocalStore(args[0])
			if err != nil {
				return err
			}
			group := ""
			if len(args) == 2 {
				group = args[1]
			}
			vars, err := dggs.OpenVariables(store, group)
			if err != nil {
				return err
			}
			idx, err := dggs.FromVariables(vars, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Index:  %s\n", idx.ReprInline(width))
			fmt.Fprintf(out, "Dim:    %s\n", idx.Dim())
			fmt.Fprintf(out, "Cells:  %d\n", idx.Len())
			if !centers {
				return nil
			}
			lon, lat, err := idx.CellCenters()
			if err != nil {
				return err
			}
			for i, id := range idx.Values().Strings() {
				fmt.Fprintf(out, "%s\t%s\t%s\n", id,
					strconv.FormatFloat(lon[i], 'f', -1, 64),
					strconv.FormatFloat(lat[i], 'f', -1, 64))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "maximum width of the index summary")
	cmd.Flags().BoolVar(&centers, "centers", false, "print the centroid of every cell")
	return cmd
}
