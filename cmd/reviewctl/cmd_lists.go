package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"debate-platform-backend/internal/client/combobox"
	"debate-platform-backend/internal/client/feed"
)

var (
	listAll      bool
	listPageSize int
	unreadOnly   bool
	pickMulti    bool
	pickCreate   bool
)

// printList prints the first page, or every page with --all.
func printList(cmd *cobra.Command, endpoint, key, search string, filters map[string]string) error {
	list, err := feed.NewList[json.RawMessage](session.cache, feed.Options{
		Endpoint: endpoint,
		Search:   search,
		Key:      key,
		Enabled:  true,
		PageSize: listPageSize,
		Filters:  filters,
	})
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	for {
		loaded, err := list.FetchNext(ctx)
		if err != nil {
			return err
		}
		if !loaded || !listAll {
			break
		}
	}

	for _, item := range list.Items() {
		fmt.Fprintln(session.out, string(item))
	}
	if list.HasNextPage() {
		fmt.Fprintln(session.out, "... more, use --all")
	}
	return nil
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var filters map[string]string
		key := "notifications"
		if unreadOnly {
			filters = map[string]string{"unread": "true"}
			key = "notifications:unread"
		}
		return printList(cmd, "/notifications", key, "", filters)
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark one notification, or all of them, as read",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/notifications/read-all"
		if len(args) == 1 {
			path = "/notifications/" + url.PathEscape(args[0]) + "/read"
		}
		return session.client.Post(commandContext(cmd), path, nil, nil)
	},
}

var notificationsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the unread count",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out struct {
			Count int64 `json:"count"`
		}
		if err := session.client.Get(commandContext(cmd), "/notifications/unread-count", nil, &out); err != nil {
			return err
		}
		fmt.Fprintln(session.out, out.Count)
		return nil
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics [search]",
	Short: "Search debate topics by name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		search := ""
		if len(args) == 1 {
			search = args[0]
		}
		return printList(cmd, "/topics", "topics", search, nil)
	},
}

var topicsPickCmd = &cobra.Command{
	Use:   "pick <name>...",
	Short: "Resolve topic names to ids, creating missing ones with --create",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		picker, err := combobox.New(session.client, "/topics", combobox.Settings{
			Multi:       pickMulti || len(args) > 1,
			AllowCreate: pickCreate,
		}, combobox.Format{LabelField: "name", ValueField: "id"})
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		for _, name := range args {
			if _, err := picker.Search(ctx, name); err != nil {
				return err
			}
			if _, err := picker.Create(ctx, name); err != nil {
				if stderrors.Is(err, combobox.ErrNotAllowed) {
					return fmt.Errorf("topic %q not found, pass --create to add it", name)
				}
				return err
			}
		}

		for _, opt := range picker.Selected() {
			fmt.Fprintf(session.out, "%s\t%s\n", opt.Value, opt.Label)
		}
		return nil
	},
}

var topicsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a topic you created",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		picker, err := topicPicker(cmd, combobox.Settings{AllowUpdate: true}, args[0])
		if err != nil {
			return err
		}
		return picker.Update(commandContext(cmd), args[0], args[1])
	},
}

var topicsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a topic you created",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		picker, err := topicPicker(cmd, combobox.Settings{AllowDelete: true}, args[0])
		if err != nil {
			return err
		}
		return picker.Remove(commandContext(cmd), args[0])
	},
}

// topicPicker loads the topic with the given id into a fresh picker.
func topicPicker(cmd *cobra.Command, settings combobox.Settings, id string) (*combobox.Model, error) {
	var topic struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := session.client.Get(commandContext(cmd), "/topics/"+url.PathEscape(id), nil, &topic); err != nil {
		return nil, err
	}

	picker, err := combobox.New(session.client, "/topics", settings, combobox.Format{})
	if err != nil {
		return nil, err
	}
	picker.Toggle(combobox.Option{Label: topic.Name, Value: topic.ID})
	return picker, nil
}

func init() {
	for _, c := range []*cobra.Command{notificationsCmd, topicsCmd, adminUsersCmd} {
		c.Flags().BoolVar(&listAll, "all", false, "Load every page")
		c.Flags().IntVar(&listPageSize, "limit", feed.DefaultPageSize, "Page size")
	}
	notificationsCmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread notifications")
	topicsPickCmd.Flags().BoolVar(&pickMulti, "multi", false, "Keep every match selected")
	topicsPickCmd.Flags().BoolVar(&pickCreate, "create", false, "Create topics that do not exist")

	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsCountCmd)
	topicsCmd.AddCommand(topicsPickCmd)
	topicsCmd.AddCommand(topicsRenameCmd)
	topicsCmd.AddCommand(topicsDeleteCmd)
}
