package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

// importCourses loads courses from a CSV catalogue export. With index set,
// the published catalogue is then embedded into the vector store.
func (cli *commandLine) importCourses(path string, index bool) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	ctx := context.Background()
	count, err := cli.crsSvc.ImportCSV(ctx, file, "")
	if err != nil {
		return err
	}
	fmt.Printf("imported %d courses\n", count)

	if !index {
		return nil
	}
	store, err := cli.newStore(ctx)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		//goland:noinspection GoUnhandledErrorResult
		defer closer.Close()
	}
	indexed, err := cli.crsSvc.IndexCatalog(ctx, store)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d courses\n", indexed)
	return nil
}
