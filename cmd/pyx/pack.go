package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/devblok/pyx/core"
	"github.com/devblok/pyx/utility/kar"
)

var (
	packOutput string
	packAuthor string
)

var packCmd = &cobra.Command{
	Use:   "pack <shader dir>",
	Short: "Pack compiled shaders into a kar archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pack(args[0], packOutput, packAuthor)
	},
}

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "shaders.kar", "Archive to write")
	packCmd.Flags().StringVar(&packAuthor, "author", "", "Author recorded in the archive header")
}

// pack adds every <name>.<vert|frag>.spv file under dir to a new archive
func pack(dir, output, author string) error {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      author,
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		return err
	}
	defer builder.Close()

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if _, t := core.ParseShaderName(path); t == core.UnknownShaderType {
			logger.WithField("file", path).Debug("skipping non shader file")
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		logger.WithField("file", path).Info("packing shader")
		return builder.Add(filepath.Base(path), file)
	})
	if err != nil {
		return err
	}
	if builder.Len() == 0 {
		return fmt.Errorf("%s: %w", dir, core.ErrNoShaders)
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	written, err := builder.WriteTo(out)
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger.WithField("bytes", written).Infof("wrote %s", output)
	return nil
}
