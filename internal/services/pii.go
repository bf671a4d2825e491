/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "regexp"
    "strings"
)

var (
    emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+`)
    phoneRe    = regexp.MustCompile(`\b\+?\d[\d\-\s]{7,}\b`)
    urlRe      = regexp.MustCompile(`https?://[^\s]+`)
    tokenRe    = regexp.MustCompile(`(?i)\b(?:token|secret|password|apikey|api_key|bearer)[:=\s]+[A-Za-z0-9\-\._~+/]{8,}\b`)
    jiraUserRe = regexp.MustCompile(`\bJIRAUSER\d+\b`)
)

// redactPII scrubs obvious PII and secrets from every string in the payload
// before it leaves for the model. Sprint goals are the usual carrier; person
// display names pass through unless they embed a matching pattern.
func redactPII(payload map[string]any) map[string]any {
    scrub := func(s string) string {
        s = strings.ReplaceAll(s, "\r\n", "\n")
        s = emailRe.ReplaceAllString(s, "<email>")
        s = phoneRe.ReplaceAllString(s, "<phone>")
        s = urlRe.ReplaceAllString(s, "<url>")
        s = tokenRe.ReplaceAllString(s, "<secret>")
        s = jiraUserRe.ReplaceAllString(s, "<user>")
        return s
    }
    var walk func(v any) any
    walk = func(v any) any {
        switch t := v.(type) {
        case string:
            return scrub(t)
        case map[string]any:
            for k, x := range t { t[k] = walk(x) }
            return t
        case []any:
            for i, x := range t { t[i] = walk(x) }
            return t
        default:
            return v
        }
    }
    for k, v := range payload { payload[k] = walk(v) }
    return payload
}
