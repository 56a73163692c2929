package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "inspect documents over the http api",
}

func init() {
	rootCmd.AddCommand(docCmd)
	docCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	docCmd.AddCommand(getDocCmd())
	docCmd.AddCommand(listVersionsCmd())
	docCmd.AddCommand(backlinksCmd())
	docCmd.AddCommand(graphCmd())
}

func apiBase() string {
	if base := os.Getenv("PAGECHAIN_API"); base != "" {
		return base
	}
	return "http://localhost:4030"
}

func getJSON(path string) {
	res, err := http.Get(apiBase() + path)
	if err != nil {
		logrus.Error(err)
		return
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		logrus.Error(err)
		return
	}

	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}

	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}

func getDocCmd() *cobra.Command {
	var docID string

	command := &cobra.Command{
		Use:     "get",
		Short:   "get a document",
		Example: "pagechain doc get -d <doc-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if docID == "" {
				logrus.Error("missing required flag: doc-id")
				return
			}
			getJSON("/v1/documents/" + docID)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id")

	return command
}

func listVersionsCmd() *cobra.Command {
	var docID string

	command := &cobra.Command{
		Use:     "versions",
		Short:   "list a document's versions",
		Example: "pagechain doc versions -d <doc-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if docID == "" {
				logrus.Error("missing required flag: doc-id")
				return
			}
			getJSON("/v1/documents/" + docID + "/versions")
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id")

	return command
}

func backlinksCmd() *cobra.Command {
	var docID string

	command := &cobra.Command{
		Use:     "backlinks",
		Short:   "list pages linking to a document",
		Example: "pagechain doc backlinks -d <doc-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if docID == "" {
				logrus.Error("missing required flag: doc-id")
				return
			}
			getJSON("/v1/documents/" + docID + "/backlinks")
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id")

	return command
}

func graphCmd() *cobra.Command {
	var docID string

	command := &cobra.Command{
		Use:     "graph",
		Short:   "show a document's connection summary",
		Example: "pagechain doc graph -d <doc-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if docID == "" {
				logrus.Error("missing required flag: doc-id")
				return
			}
			getJSON("/v1/documents/" + docID + "/graph")
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id")

	return command
}
