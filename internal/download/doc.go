/*
Package download materializes remote media sources as local files.

A Resolver holds an ordered list of strategies and tries each in turn until
one produces a non-empty file:

  - direct: video ids through the YouTube client, media URLs by plain GET
  - headless: headless Chrome watches page traffic for media responses
  - scrape: Open Graph and <video> tags parsed from the page HTML
  - credential: yt-dlp with cookie jars from the credential pool
  - proxy: yt-dlp through each configured proxy

Strategies whose prerequisites are missing (no browser, no credentials, no
proxies, wrong kind of source) are skipped and recorded as such.

Every attempt runs under the retry engine. Classify is the single place that
decides whether a failure is retryable, an authentication rejection, or
fatal for the strategy. Authentication failures during the credential
strategy revoke the credential and move on to the next one.

When nothing works the error is a *FatalError listing every attempt.
*/
package download
