package backupdb

import (
	"fmt"
	"strings"
)

// Schema describes the version-dependent layout of a Signal metadata
// database. Signal has renamed its message table and several columns over
// the years; backups also routinely arrive with the relationship tables
// stripped, in which case only the minimal attachment projection is usable.
type Schema struct {
	// Full is true when message, thread, recipient and groups tables are all
	// present and conversation-aware export is possible.
	Full bool

	// MessageTable is "message" in current databases, "mms" in older ones.
	MessageTable string
	// MessageTypeColumn holds the message direction bits: "type" or "msg_box".
	MessageTypeColumn string
	// ThreadRecipientColumn links thread to recipient: "recipient_id",
	// "thread_recipient_id" or "recipient_ids" depending on age.
	ThreadRecipientColumn string

	// chatPartnerExpr is the COALESCE over the name columns that exist in
	// this database, resolving a conversation display name by priority:
	// group title, system contact name, joined profile name, given name.
	chatPartnerExpr string
}

// detectSchema probes the database layout. The part table with its
// display_order column is the hard requirement; everything else only decides
// between full and minimal export.
func (d *DB) detectSchema() error {
	ok, err := d.HasTable("part")
	if err != nil {
		return err
	}
	if ok {
		ok, err = d.HasColumn("part", "display_order")
		if err != nil {
			return err
		}
	}
	if !ok {
		return fmt.Errorf("database too damaged or too old for media export: missing part.display_order")
	}

	s := Schema{}

	for _, table := range []string{"message", "mms"} {
		ok, err := d.HasTable(table)
		if err != nil {
			return err
		}
		if ok {
			s.MessageTable = table
			break
		}
	}

	if s.MessageTable != "" {
		for _, col := range []string{"type", "msg_box"} {
			ok, err := d.HasColumn(s.MessageTable, col)
			if err != nil {
				return err
			}
			if ok {
				s.MessageTypeColumn = col
				break
			}
		}
	}

	haveThread, err := d.HasTable("thread")
	if err != nil {
		return err
	}
	if haveThread {
		for _, col := range []string{"recipient_id", "thread_recipient_id", "recipient_ids"} {
			ok, err := d.HasColumn("thread", col)
			if err != nil {
				return err
			}
			if ok {
				s.ThreadRecipientColumn = col
				break
			}
		}
	}

	haveRecipient, err := d.HasTable("recipient")
	if err != nil {
		return err
	}
	haveGroups, err := d.HasTable("groups")
	if err != nil {
		return err
	}

	if haveRecipient {
		var names []string
		if haveGroups {
			names = append(names, "groups.title")
		}
		for _, col := range []string{
			"system_joined_name", "system_display_name",
			"profile_joined_name",
			"profile_given_name", "signal_profile_name",
		} {
			ok, err := d.HasColumn("recipient", col)
			if err != nil {
				return err
			}
			if ok {
				names = append(names, "recipient."+col)
			}
		}
		if len(names) > 0 {
			s.chatPartnerExpr = "COALESCE(" + strings.Join(names, ", ") + ")"
		}
	}

	s.Full = s.MessageTable != "" && s.MessageTypeColumn != "" &&
		haveThread && s.ThreadRecipientColumn != "" &&
		haveRecipient && haveGroups && s.chatPartnerExpr != ""

	d.Schema = s
	return nil
}
