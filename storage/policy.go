package storage

import (
	"encoding/json"
	"fmt"
)

const publicReadSid = "HolidayPublicRead"

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []json.RawMessage `json:"Statement"`
}

type statement struct {
	Sid       string              `json:"Sid"`
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

func publicReadStatement(bucket string) statement {
	return statement{
		Sid:       publicReadSid,
		Effect:    "Allow",
		Principal: map[string][]string{"AWS": {"*"}},
		Action:    []string{"s3:GetObject"},
		Resource:  []string{fmt.Sprintf("arn:aws:s3:::%s/holiday/*", bucket)},
	}
}

func parsePolicy(policy string) (*policyDocument, error) {
	doc := &policyDocument{Version: "2012-10-17"}
	if policy == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(policy), doc); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	return doc, nil
}

func statementSid(raw json.RawMessage) string {
	var s struct {
		Sid string `json:"Sid"`
	}
	_ = json.Unmarshal(raw, &s)
	return s.Sid
}

// addPublicRead adds the holiday statement, leaving other statements alone.
func addPublicRead(policy, bucket string) (string, bool, error) {
	doc, err := parsePolicy(policy)
	if err != nil {
		return "", false, err
	}
	for _, raw := range doc.Statement {
		if statementSid(raw) == publicReadSid {
			return policy, false, nil
		}
	}
	st, err := json.Marshal(publicReadStatement(bucket))
	if err != nil {
		return "", false, err
	}
	doc.Statement = append(doc.Statement, st)
	out, err := json.Marshal(doc)
	if err != nil {
		return "", false, err
	}
	return string(out), true, nil
}

// removePublicRead drops the holiday statement. An empty result deletes the
// bucket policy.
func removePublicRead(policy string) (string, bool, error) {
	doc, err := parsePolicy(policy)
	if err != nil {
		return "", false, err
	}
	var kept []json.RawMessage
	for _, raw := range doc.Statement {
		if statementSid(raw) == publicReadSid {
			continue
		}
		kept = append(kept, raw)
	}
	if len(kept) == len(doc.Statement) {
		return policy, false, nil
	}
	if len(kept) == 0 {
		return "", true, nil
	}
	doc.Statement = kept
	out, err := json.Marshal(doc)
	if err != nil {
		return "", false, err
	}
	return string(out), true, nil
}
